package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the call screen.
var (
	ColorIndigo  = lipgloss.Color("#818CF8")
	ColorGreen   = lipgloss.Color("#22C55E")
	ColorRed     = lipgloss.Color("#EF4444")
	ColorYellow  = lipgloss.Color("#FACC15")
	ColorGray    = lipgloss.Color("#6B7280")
	ColorDimGray = lipgloss.Color("#374151")
	ColorWhite   = lipgloss.Color("#F9FAFB")
)

var (
	FrameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimGray).
			Padding(0, 1).
			Width(44)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(lipgloss.Color("#15803D")).
			Bold(true).
			Padding(0, 1)

	AgentStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	IVRStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#86EFAC"))

	QuestionStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDimGray).
			Padding(0, 1)

	SpeakingStyle = lipgloss.NewStyle().
			Foreground(ColorIndigo).
			Bold(true)

	ListeningStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	AnswerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorIndigo).
			Padding(0, 1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	ProgressDoneStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)
)
