package call

import "fmt"

// Language is one IVR menu option.
type Language struct {
	Key    string
	Name   string
	Script string
	Locale string
}

// DefaultLocale is used for speech capture when no language is selected.
const DefaultLocale = "en-IN"

var languages = []Language{
	{Key: "1", Name: "Malayalam", Script: "മലയാളം", Locale: "ml-IN"},
	{Key: "2", Name: "Hindi", Script: "हिंदी", Locale: "hi-IN"},
	{Key: "3", Name: "Tamil", Script: "தமிழ்", Locale: "ta-IN"},
	{Key: "4", Name: "Telugu", Script: "తెలుగు", Locale: "te-IN"},
	{Key: "5", Name: "Bengali", Script: "বাংলা", Locale: "bn-IN"},
	{Key: "6", Name: "Marathi", Script: "मराठी", Locale: "mr-IN"},
	{Key: "7", Name: "Kannada", Script: "ಕನ್ನಡ", Locale: "kn-IN"},
	{Key: "8", Name: "English", Script: "English", Locale: "en-IN"},
}

// Languages returns the fixed language menu in key order.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// LookupLanguage finds a language by its keypad key.
func LookupLanguage(key string) (Language, bool) {
	for _, l := range languages {
		if l.Key == key {
			return l, true
		}
	}
	return Language{}, false
}

// IVRLines is the welcome menu, revealed one line per tick.
var IVRLines = buildIVRLines()

func buildIVRLines() []string {
	lines := []string{
		"Welcome to SkillSync — the worker profile platform.",
		"",
		"To continue in your language, press a number:",
		"",
	}
	for _, l := range languages {
		if l.Name == l.Script {
			lines = append(lines, fmt.Sprintf("  %s → %s", l.Key, l.Name))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s → %-10s (%s)", l.Key, l.Name, l.Script))
	}
	return append(lines, "", "Press your number now.")
}

func selectedLines(l Language) []string {
	return []string{
		fmt.Sprintf("You selected %s (%s).", l.Name, l.Script),
		"",
		fmt.Sprintf("Connecting you to interview questions in %s...", l.Name),
		"",
		"Please hold.",
	}
}
