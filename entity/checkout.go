package entity

import (
	"net/http"

	"ideaforge/lib/validate"
)

// CheckoutRequest starts the unlock purchase for a finalized project.
type CheckoutRequest struct {
	ProjectId   string `json:"projectId" validate:"required,min=1"`
	ProjectName string `json:"projectName" validate:"required,min=1"`
}

func (c *CheckoutRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// Payment is the created checkout session returned to the purchase flow.
// Code is the session code reserved for this purchase; the same code comes
// back in the success redirect and in the webhook metadata.
type Payment struct {
	SessionId string `json:"session_id"`
	Link      string `json:"link,omitempty"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Code      string `json:"code"`
}
