package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/tui/widgets"
)

const agentName = "SkillSync AI Agent"

// View renders the phone frame for the current stage.
func (m Model) View() string {
	s := m.snap
	var body string
	var hints [][2]string
	switch s.Stage {
	case call.StageDial:
		body, hints = m.viewDial(), [][2]string{{"0-9", "digits"}, {"⌫", "delete"}, {"enter", "call"}, {"q", "quit"}}
	case call.StageRinging:
		body, hints = m.viewRinging(), [][2]string{{"esc", "end call"}}
	case call.StageIVR:
		body, hints = m.connected(m.viewIVR()), [][2]string{{"1-8", "language"}, {"esc", "end call"}}
	case call.StageInterview:
		body, hints = m.connected(m.viewInterview()), m.voiceHints()
	case call.StageReviewing:
		body, hints = m.connected(m.viewReviewing()), [][2]string{{"esc", "end call"}}
	case call.StageDone:
		body, hints = m.viewDone(), [][2]string{{"s", "save profile"}, {"n", "new call"}, {"q", "quit"}}
	}

	parts := []string{FrameStyle.Render(body)}
	if line := m.statusLine(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, footer(hints))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) connected(content string) string {
	s := m.snap
	header := HeaderStyle.Render(fmt.Sprintf("● CALL CONNECTED   %s", widgets.Clock(s.Elapsed)))
	agent := AgentStyle.Render(agentName) + "\n" + DimStyle.Render("+91 "+s.Session.Phone)
	return lipgloss.JoinVertical(lipgloss.Left, header, agent, "", content)
}

func (m Model) viewDial() string {
	s := m.snap
	lines := []string{
		AgentStyle.Render(agentName),
		DimStyle.Render("Worker Onboarding • Multilingual"),
		"",
		DimStyle.Render("WORKER PHONE NUMBER"),
		InputStyle.Render(widgets.FormatPhone(s.Phone)),
		"",
		keypad(),
		"",
	}
	if s.CanDial {
		lines = append(lines, SuccessStyle.Render("[ Call Worker ]"))
	} else {
		lines = append(lines, DimStyle.Render("[ Call Worker ]"))
	}
	lines = append(lines, DimStyle.Render("AI will ask worker to select language using keypad"))
	return strings.Join(lines, "\n")
}

func keypad() string {
	rows := []string{" 1   2   3", " 4   5   6", " 7   8   9", " *   0   #"}
	return DimStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) viewRinging() string {
	return strings.Join([]string{
		"",
		AgentStyle.Render(agentName),
		DimStyle.Render(fmt.Sprintf("Calling +91 %s...", m.snap.Phone)),
		"",
		SuccessStyle.Render(widgets.Dots(m.frame)),
		"",
	}, "\n")
}

func (m Model) viewIVR() string {
	s := m.snap
	text := widgets.Typewriter(strings.Join(s.IVRLines, "\n"), s.KeysVisible, m.frame)
	lines := []string{IVRStyle.Render(text)}
	if s.KeysVisible {
		lines = append(lines, "", DimStyle.Render("Press a number on your keyboard:"), languageKeys())
	}
	if s.Fetching {
		lang := s.Session.Language.Name
		lines = append(lines, "", WarningStyle.Render(fmt.Sprintf("%s Loading %s questions...", widgets.Spinner(m.frame), lang)))
	}
	return strings.Join(lines, "\n")
}

func languageKeys() string {
	var cells []string
	for _, l := range call.Languages() {
		name := []rune(l.Name)
		if len(name) > 4 {
			name = name[:4]
		}
		cells = append(cells, fmt.Sprintf("%s %s", FooterKeyStyle.Render(l.Key), DimStyle.Render(string(name))))
	}
	return strings.Join(cells[:4], "  ") + "\n" + strings.Join(cells[4:], "  ")
}

func (m Model) viewInterview() string {
	s := m.snap
	if len(s.Questions) == 0 {
		return DimStyle.Render("Waiting for questions...")
	}
	progress := widgets.Progress(len(s.Questions), s.Current)
	done := []rune(progress)
	cut := min(s.Current, len(done))
	lines := []string{
		ProgressDoneStyle.Render(string(done[:cut])) + DimStyle.Render(string(done[cut:])),
		"",
		"AI " + QuestionStyle.Render(s.Question.Text),
		"",
	}

	switch s.Voice {
	case call.VoiceSpeaking:
		lines = append(lines,
			SpeakingStyle.Render(widgets.SoundWave(m.frame)),
			SpeakingStyle.Render("AI is speaking…"),
		)
	case call.VoiceListening:
		lines = append(lines,
			ListeningStyle.Render(widgets.MicPulse(m.frame)),
			ListeningStyle.Render(fmt.Sprintf("Listening — speak in %s…", s.Session.Language.Name)),
		)
	case call.VoiceConfirming:
		answer := s.Spoken
		if answer == "" {
			answer = "—"
		}
		lines = append(lines, AnswerStyle.Render(DimStyle.Render("YOUR ANSWER (ENGLISH):")+"\n"+answer))
	case call.VoiceTyping:
		lines = append(lines, InputStyle.Render(widgets.Typewriter(s.Edit, false, m.frame)))
		if s.Current+1 < len(s.Questions) {
			lines = append(lines, DimStyle.Render(fmt.Sprintf("enter: Next (%d/%d) →", s.Current+1, len(s.Questions))))
		} else {
			lines = append(lines, DimStyle.Render("enter: Finish ✓"))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) voiceHints() [][2]string {
	hints := [][2]string{}
	switch m.snap.Voice {
	case call.VoiceSpeaking:
		hints = append(hints, [2]string{"s", "skip, start listening"})
	case call.VoiceListening:
		hints = append(hints, [2]string{"t", "type instead"}, [2]string{"r", "repeat question"})
	case call.VoiceConfirming:
		hints = append(hints, [2]string{"enter", "confirm"}, [2]string{"r", "re-record"}, [2]string{"e", "edit"})
	case call.VoiceTyping:
		hints = append(hints, [2]string{"enter", "submit"}, [2]string{"tab", "voice"})
	}
	return append(hints, [2]string{"esc", "end call"})
}

func (m Model) viewReviewing() string {
	return strings.Join([]string{
		"",
		SpeakingStyle.Render(widgets.Spinner(m.frame) + " Analysing your answers..."),
		DimStyle.Render("AI is building your worker profile"),
		"",
	}, "\n")
}

func (m Model) viewDone() string {
	s := m.snap
	p := s.Profile
	name := p.Name()
	if name == "" {
		name = "Worker"
	}
	lines := []string{
		SuccessStyle.Render("✅ Call Complete") + "  " + DimStyle.Render("AI-built profile ready"),
		"",
		AgentStyle.Render(name),
		DimStyle.Render(fmt.Sprintf("%s · %s", p.SkillType(), s.Session.Language.Name)),
		"",
	}
	rows := [][2]string{
		{"Experience", suffix(p.ExperienceYears(), " yrs")},
		{"Daily Rate", wrap("₹", p.DailyRate(), "/day")},
		{"Location", p.LocationHint()},
		{"Skills", strings.Join(p.Specializations(), ", ")},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-11s %s", DimStyle.Render(r[0]), r[1]))
	}
	if bio := p.Bio(); bio != "" {
		lines = append(lines, "", DimStyle.Render("AI BIO"), fmt.Sprintf("%q", bio))
	}
	if v := s.Verification; v != nil {
		lines = append(lines, "", verificationLine(v))
	}
	switch {
	case s.Saved:
		lines = append(lines, "", SuccessStyle.Render("Saved"))
	case s.Saving:
		lines = append(lines, "", WarningStyle.Render(widgets.Spinner(m.frame)+" Saving..."))
	}
	return strings.Join(lines, "\n")
}

func verificationLine(v *call.VerificationResult) string {
	switch v.Outcome {
	case call.OTPVerified:
		return SuccessStyle.Render("Aadhaar verified")
	case call.OTPRejected:
		return WarningStyle.Render("Aadhaar not verified")
	default:
		return ErrorStyle.Render("Aadhaar verification failed")
	}
}

func suffix(v, s string) string {
	if v == "" {
		return ""
	}
	return v + s
}

func wrap(pre, v, post string) string {
	if v == "" {
		return ""
	}
	return pre + v + post
}

// statusLine shows a key error, or the latest controller notice until it
// expires.
func (m Model) statusLine() string {
	if m.errText != "" {
		return ErrorStyle.Render(m.errText)
	}
	n := m.snap.Notice
	if n == nil || n.Seq <= m.noticeExpired {
		return ""
	}
	switch n.Level {
	case call.NoticeSuccess:
		return SuccessStyle.Render(n.Text)
	case call.NoticeWarning:
		return WarningStyle.Render(n.Text)
	case call.NoticeError:
		return ErrorStyle.Render(n.Text)
	default:
		return DimStyle.Render(n.Text)
	}
}

func footer(hints [][2]string) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, FooterKeyStyle.Render(h[0])+" "+FooterDescStyle.Render(h[1]))
	}
	return strings.Join(parts, "  ")
}
