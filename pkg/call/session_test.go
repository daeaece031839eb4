package call

import (
	"strings"
	"testing"
)

func TestAnswerSetKeepsFirstInsertionOrder(t *testing.T) {
	a := NewAnswerSet()
	a.Set("name", "Ravi")
	a.Set("skill", "plumber")
	a.Set("name", "Ravi Kumar")
	list := a.List()
	if a.Len() != 2 || list[0].Key != "name" || list[1].Key != "skill" {
		t.Fatalf("unexpected order %+v", list)
	}
	if list[0].Text != "Ravi Kumar" {
		t.Fatalf("expected overwritten text, got %q", list[0].Text)
	}
	m := a.Map()
	m["name"] = "changed"
	if v, _ := a.Get("name"); v != "Ravi Kumar" {
		t.Fatalf("Map must return a copy")
	}
}

func TestFallbackProfileUsesKnownKeys(t *testing.T) {
	a := NewAnswerSet()
	a.Set("name", "Ravi")
	a.Set("experience", "10")
	a.Set("about", "fixes pipes")
	p := FallbackProfile(a)
	if len(p) != 2 || p.Name() != "Ravi" || p.Bio() != "fixes pipes" {
		t.Fatalf("unexpected fallback %v", p)
	}
	if p.SkillType() != "" {
		t.Fatalf("missing skill answer must stay empty")
	}
}

func TestStageTransitions(t *testing.T) {
	if !stageTransitionValid(StageInterview, StageDial) || stageTransitionValid(StageDial, StageDial) {
		t.Fatalf("hang-up transitions wrong")
	}
	if stageTransitionValid(StageIVR, StageDone) {
		t.Fatalf("ivr must not jump to done")
	}
	if !voiceTransitionValid(VoiceListening, VoiceSpeaking) || voiceTransitionValid(VoiceTyping, VoiceConfirming) {
		t.Fatalf("voice transitions wrong")
	}
	err := &InvalidTransitionError{From: "ivr", To: "done"}
	if !strings.Contains(err.Error(), "ivr") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestIVRMenuListsEveryLanguage(t *testing.T) {
	menu := strings.Join(IVRLines, "\n")
	for _, l := range Languages() {
		if !strings.Contains(menu, l.Key+" → "+l.Name) {
			t.Fatalf("menu missing %s", l.Name)
		}
	}
	if _, ok := LookupLanguage("0"); ok {
		t.Fatalf("0 is not a language key")
	}
	lines := selectedLines(languages[1])
	if lines[0] != "You selected Hindi (हिंदी)." {
		t.Fatalf("unexpected selection line %q", lines[0])
	}
}
