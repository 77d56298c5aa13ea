package advisor

import (
	"strings"
	"testing"

	"ideaforge/entity"
)

func TestParseOpportunitiesFencedArray(t *testing.T) {
	content := "Here are the results:\n```json\n[{\"name\":\"InvoiceBot\",\"description\":\"Invoice reminders\",\"complexity\":\"simple\"},{\"name\":\"FormPilot\"}]\n```\nLet me know."

	got, err := parseOpportunities(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(got))
	}
	if got[0].Name != "InvoiceBot" || got[0].Complexity != "simple" {
		t.Errorf("first opportunity mangled: %+v", got[0])
	}
	if got[0].Id == "" || got[1].Id == "" {
		t.Error("ids must be assigned")
	}
	if got[0].Id == got[1].Id {
		t.Error("assigned ids must be unique")
	}
	if got[0].AddedAt == "" {
		t.Error("added_at must be stamped")
	}
}

func TestParseOpportunitiesBareFence(t *testing.T) {
	content := "```\n[{\"name\":\"TagCloud\"}]\n```"
	got, err := parseOpportunities(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Name != "TagCloud" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseOpportunitiesSingleObject(t *testing.T) {
	got, err := parseOpportunities(`{"name":"SoloTool","potential":"high"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Name != "SoloTool" || got[0].Potential != "high" {
		t.Fatalf("single object not handled: %+v", got)
	}
}

func TestParseOpportunitiesNotJSON(t *testing.T) {
	if _, err := parseOpportunities("I could not find anything today."); err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestParseOpportunitiesDefaults(t *testing.T) {
	got, err := parseOpportunities(`[{}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := got[0]
	if o.Name != "Unnamed opportunity" {
		t.Errorf("name default missing: %q", o.Name)
	}
	if o.MarketType != "both" || o.ProductType != "micro-saas" || o.Complexity != "medium" {
		t.Errorf("classification defaults missing: %+v", o)
	}
	if o.DevTime != "2-4 weeks" || o.Potential != "medium" {
		t.Errorf("estimate defaults missing: %+v", o)
	}
	if o.Tags == nil {
		t.Error("tags must default to an empty list")
	}
}

func TestStageAt(t *testing.T) {
	first, ok := StageAt(0)
	if !ok || first.Id != "setup" {
		t.Errorf("stage 0 = %+v, %v", first, ok)
	}
	last, ok := StageAt(StageCount() - 1)
	if !ok || last.Id != "deploy" {
		t.Errorf("last stage = %+v, %v", last, ok)
	}
	if _, ok = StageAt(-1); ok {
		t.Error("negative step must be out of range")
	}
	if _, ok = StageAt(StageCount()); ok {
		t.Error("step past the script must be out of range")
	}
}

func TestStepCompleted(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"ok, next step please", true},
		{"I'm DONE with this one", true},
		{"finished the landing page", true},
		{"it crashes on startup", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := stepCompleted(tc.message); got != tc.want {
			t.Errorf("stepCompleted(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestTrimHistory(t *testing.T) {
	msgs := func(n int) []entity.ChatMessage {
		out := make([]entity.ChatMessage, n)
		for i := range out {
			out[i] = entity.ChatMessage{Role: "user", Content: string(rune('a' + i))}
		}
		return out
	}

	if got := trimHistory(nil, 4); len(got) != 0 {
		t.Errorf("empty history: got %d messages", len(got))
	}
	// the trailing message is the current turn and must be dropped
	if got := trimHistory(msgs(3), 4); len(got) != 2 {
		t.Errorf("short history: got %d messages, want 2", len(got))
	}
	got := trimHistory(msgs(10), 4)
	if len(got) != 4 {
		t.Fatalf("long history: got %d messages, want 4", len(got))
	}
	if got[len(got)-1].Content != "i" {
		t.Errorf("must keep the most recent turns, last = %q", got[len(got)-1].Content)
	}
}

func TestGuidePromptNamesStageTool(t *testing.T) {
	req := &entity.GuideRequest{
		ProjectName: "InvoiceBot",
		Brief:       "short brief",
		CurrentStep: 3,
		UserMessage: "ready",
	}
	step, _ := StageAt(3)
	prompt := guidePrompt(req, step)
	for _, want := range []string{"InvoiceBot", "Landing page", "v0", "stage 4 of 5"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("guide prompt missing %q", want)
		}
	}
}

func TestChatPromptTruncatesBrief(t *testing.T) {
	long := make([]byte, 1500)
	for i := range long {
		long[i] = 'x'
	}
	req := &entity.ChatRequest{
		Opportunity: &entity.Opportunity{Name: "InvoiceBot"},
		Brief:       string(long),
		UserMessage: "is this viable?",
	}
	prompt := chatPrompt(req)
	if !strings.Contains(prompt, "[full brief available]") {
		t.Error("long brief must be truncated with a marker")
	}
	if strings.Contains(prompt, string(long)) {
		t.Error("full brief must not be embedded")
	}
}
