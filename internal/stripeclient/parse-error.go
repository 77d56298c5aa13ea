package stripeclient

import (
	"encoding/json"
	"fmt"
)

type stripeErrorRaw struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	Type          string `json:"type"`
	RequestID     string `json:"request_id"`
	RequestLogURL string `json:"request_log_url"`
}

// parseErr unwraps the JSON body stripe-go stuffs into error strings so
// callers get "status 402: Your card was declined" instead of a blob.
func (s *StripeClient) parseErr(err error) error {
	var se stripeErrorRaw
	payload := []byte(err.Error())
	e := json.Unmarshal(payload, &se)
	if e != nil {
		return err
	}
	return fmt.Errorf("status %d: %s", se.Status, se.Message)
}
