package twin

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/skillcall/pkg/backend"
)

//go:embed questions.yaml
var defaultBank []byte

// Bank is the interview content the twin serves: the question order, the
// per-language greeting and questions, and canned data used to fake
// transcription and translation.
type Bank struct {
	Keys      []string          `yaml:"keys"`
	Languages []LanguageEntry   `yaml:"languages"`
	Samples   map[string]string `yaml:"sample_answers"`
	Trades    []string          `yaml:"trades"`
	Glossary  map[string]string `yaml:"glossary"`
}

type LanguageEntry struct {
	Key       string            `yaml:"key"`
	Name      string            `yaml:"name"`
	Greeting  string            `yaml:"greeting"`
	Questions map[string]string `yaml:"questions"`
}

// LoadBank parses a question bank and checks every language covers every key.
func LoadBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(b.Keys) == 0 {
		return nil, fmt.Errorf("question bank has no keys")
	}
	seen := make(map[string]bool, len(b.Languages))
	for _, lang := range b.Languages {
		if lang.Key == "" || lang.Name == "" {
			return nil, fmt.Errorf("language entry missing key or name")
		}
		if seen[lang.Key] {
			return nil, fmt.Errorf("duplicate language key %q", lang.Key)
		}
		seen[lang.Key] = true
		for _, k := range b.Keys {
			if strings.TrimSpace(lang.Questions[k]) == "" {
				return nil, fmt.Errorf("language %s missing question %q", lang.Name, k)
			}
		}
	}
	return &b, nil
}

// DefaultBank returns the embedded question bank.
func DefaultBank() *Bank {
	b, err := LoadBank(defaultBank)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Bank) Language(key string) (LanguageEntry, bool) {
	for _, lang := range b.Languages {
		if lang.Key == key {
			return lang, true
		}
	}
	return LanguageEntry{}, false
}

// Menu lists the languages ordered by key.
func (b *Bank) Menu() []backend.Language {
	out := make([]backend.Language, 0, len(b.Languages))
	for _, lang := range b.Languages {
		out = append(out, backend.Language{Key: lang.Key, Name: lang.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (b *Bank) Questions(lang LanguageEntry) []backend.Question {
	out := make([]backend.Question, 0, len(b.Keys))
	for _, k := range b.Keys {
		out = append(out, backend.Question{Key: k, Text: lang.Questions[k]})
	}
	return out
}

// Translate swaps glossary words for their English form. Text with no
// glossary hits comes back unchanged.
func (b *Bank) Translate(text string) string {
	if len(b.Glossary) == 0 {
		return text
	}
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.TrimRight(w, ".,!?।")
		if en, ok := b.Glossary[trimmed]; ok {
			words[i] = en + w[len(trimmed):]
		}
	}
	return strings.Join(words, " ")
}

// englishQuestion returns the English text for key, used in transcripts.
func (b *Bank) englishQuestion(key string) string {
	for _, lang := range b.Languages {
		if lang.Name == "English" {
			return lang.Questions[key]
		}
	}
	return key
}
