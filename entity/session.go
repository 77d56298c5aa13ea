package entity

import (
	"encoding/json"
	"net/http"
	"strings"

	"ideaforge/lib/validate"
)

// NormalizeCode maps user input to the canonical store key: trimmed and
// uppercased. Codes are case-insensitive bearer credentials.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SessionState is the payload saved against a code when the project or chat
// progresses. ProjectData and ChatHistory are opaque at this layer: stored
// and returned verbatim, never interpreted beyond the project id lookup.
type SessionState struct {
	Code        string            `json:"code" validate:"required,min=1"`
	ProjectData json.RawMessage   `json:"projectData,omitempty"`
	ProjectName string            `json:"projectName,omitempty"`
	ChatHistory []json.RawMessage `json:"chatHistory,omitempty"`
	CurrentStep int               `json:"currentStep" validate:"min=0"`
}

func (s *SessionState) Bind(_ *http.Request) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	s.Code = NormalizeCode(s.Code)
	return nil
}

// projectId extracts the id field from the opaque project payload, when the
// payload is an object carrying one.
func (s *SessionState) projectId() *string {
	if len(s.ProjectData) == 0 {
		return nil
	}
	var probe struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(s.ProjectData, &probe); err != nil || probe.Id == "" {
		return nil
	}
	return &probe.Id
}

// ResolveRequest carries a user-typed code back into its session.
type ResolveRequest struct {
	Code string `json:"code" validate:"required,min=1"`
}

func (r *ResolveRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	r.Code = NormalizeCode(r.Code)
	return nil
}

// SessionView is the three-state outcome of resolving a code: unknown,
// known but not yet redeemed, or redeemed with the stored snapshot.
type SessionView struct {
	Valid       bool              `json:"valid"`
	HasProject  bool              `json:"hasProject"`
	ProjectData json.RawMessage   `json:"projectData,omitempty"`
	ProjectName *string           `json:"projectName,omitempty"`
	ChatHistory []json.RawMessage `json:"chatHistory,omitempty"`
	CurrentStep int               `json:"currentStep,omitempty"`
	ActivatedAt *string           `json:"activatedAt,omitempty"`
}

// NewSessionView builds the resolution result from a stored record.
// A nil record means the code does not exist.
func NewSessionView(rec *CodeRecord) *SessionView {
	if rec == nil {
		return &SessionView{Valid: false}
	}
	if !rec.Used {
		return &SessionView{Valid: true, HasProject: false}
	}
	return &SessionView{
		Valid:       true,
		HasProject:  true,
		ProjectData: rec.ProjectData,
		ProjectName: rec.ProjectName,
		ChatHistory: rec.ChatHistory,
		CurrentStep: rec.CurrentStep,
		ActivatedAt: rec.ActivatedAt,
	}
}
