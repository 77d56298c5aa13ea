package entity

import "encoding/json"

// CodeRecord is the lifecycle state of one redeemable access code.
// Records are pre-provisioned out of band and never created or deleted at
// runtime; only the fields below mutate. The serialized field names are the
// persisted storage layout and must stay stable.
type CodeRecord struct {
	Used        bool              `json:"used" bson:"used"`
	ProjectId   *string           `json:"projectId" bson:"projectId"`
	ProjectName *string           `json:"projectName" bson:"projectName"`
	ProjectData json.RawMessage   `json:"projectData" bson:"projectData"`
	ChatHistory []json.RawMessage `json:"chatHistory" bson:"chatHistory"`
	CurrentStep int               `json:"currentStep" bson:"currentStep"`
	CreatedAt   *string           `json:"createdAt" bson:"createdAt"`
	ActivatedAt *string           `json:"activatedAt" bson:"activatedAt"`
}

// Reserve stamps the reservation time for a new purchase. The code is not
// consumed by a reservation; Used flips only when a session is saved.
func (c *CodeRecord) Reserve(now string) {
	c.CreatedAt = &now
}

// ApplySession attaches project and conversation state, marking the code
// used. ActivatedAt and CreatedAt are written once and preserved across
// repeated saves.
func (c *CodeRecord) ApplySession(state *SessionState, now string) {
	c.Used = true
	c.ProjectId = state.projectId()
	c.ProjectName = nilIfEmpty(state.ProjectName)
	c.ProjectData = state.ProjectData
	c.ChatHistory = state.ChatHistory
	if c.ChatHistory == nil {
		c.ChatHistory = []json.RawMessage{}
	}
	c.CurrentStep = state.CurrentStep
	if c.ActivatedAt == nil {
		c.ActivatedAt = &now
	}
	if c.CreatedAt == nil {
		c.CreatedAt = &now
	}
}

func (c *CodeRecord) HasProject() bool {
	return c.Used
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
