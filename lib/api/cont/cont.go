package cont

import (
	"context"

	"ideaforge/entity"
)

type ctxKey string

const SessionDataKey ctxKey = "sessionData"

// Session pairs the bearer code with the resolved session view for the
// lifetime of one request.
type Session struct {
	Code string
	View entity.SessionView
}

func PutSession(c context.Context, code string, view *entity.SessionView) context.Context {
	return context.WithValue(c, SessionDataKey, Session{Code: code, View: *view})
}

func GetSession(c context.Context) *Session {
	session, ok := c.Value(SessionDataKey).(Session)
	if !ok {
		return &Session{}
	}
	return &session
}
