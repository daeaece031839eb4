package twin

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/harunnryd/skillcall/pkg/backend"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// transcript renders the answers as Q/A pairs in interview order. Keys the
// bank does not know are appended in sorted order.
func (b *Bank) transcript(answers map[string]string) string {
	var pairs []string
	seen := make(map[string]bool, len(answers))
	for _, k := range b.Keys {
		if a, ok := answers[k]; ok {
			pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", b.englishQuestion(k), a))
			seen[k] = true
		}
	}
	var extra []string
	for k := range answers {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", k, answers[k]))
	}
	return strings.Join(pairs, "\n\n")
}

// extract builds a worker profile from the raw answers with keyword rules.
// The name and location answers are copied through verbatim.
func (b *Bank) extract(language string, answers map[string]string) backend.Profile {
	skill := strings.ToLower(b.Translate(strings.TrimSpace(answers["skill"])))
	about := strings.TrimSpace(b.Translate(answers["about"]))

	skillType := b.findTrade(skill)
	if skillType == "" {
		skillType = skill
	}
	years := firstNumber(answers["experience"])
	rate := firstNumber(answers["daily_rate"])

	var specs []string
	for _, t := range b.Trades {
		if t != skillType && strings.Contains(strings.ToLower(about), t) {
			specs = append(specs, t)
		}
	}

	bio := about
	if bio == "" && skillType != "" {
		bio = fmt.Sprintf("%s with %s years of experience.", capitalize(skillType), strconv.FormatFloat(years, 'f', -1, 64))
	}

	p := backend.Profile{
		"skill_type":       skillType,
		"experience_years": years,
		"daily_rate":       rate,
		"bio_english":      bio,
		"specializations":  specs,
		"language":         language,
	}
	if name := strings.TrimSpace(answers["name"]); name != "" {
		p["name"] = name
	}
	if loc := strings.TrimSpace(answers["location"]); loc != "" {
		p["location_hint"] = loc
	}
	return p
}

func (b *Bank) findTrade(text string) string {
	for _, t := range b.Trades {
		if strings.Contains(text, t) {
			return t
		}
	}
	return ""
}

func firstNumber(s string) float64 {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
