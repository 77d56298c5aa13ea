package entity

// GuideStep is one stage of the fixed development coaching script.
type GuideStep struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
}

// GuideReply is the advisor's answer for one coaching turn, with the stage
// bookkeeping the front-end needs to advance the script.
type GuideReply struct {
	Reply         string    `json:"reply"`
	Step          GuideStep `json:"step"`
	StepCompleted bool      `json:"step_completed"`
	NextStep      int       `json:"next_step"`
}
