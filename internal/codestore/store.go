package codestore

import (
	"context"
	"errors"

	"ideaforge/entity"
)

// ErrNotFound reports a code that does not exist in the store. Codes are
// provisioned out of band; no operation ever creates one.
var ErrNotFound = errors.New("code not found")

// ErrNoneAvailable reports that every provisioned code is already used.
// The purchase flow treats this as a hard stop.
var ErrNoneAvailable = errors.New("no unused code available")

// Store is the code -> record mapping behind the session system. Mutations
// on the same code are linearizable: concurrent allocations never hand out
// one unused code twice, and concurrent saves never lose a writer's update.
type Store interface {
	// Allocate picks the first unused code in ascending code order and
	// stamps its reservation time. The code stays unused until a session
	// is saved against it.
	Allocate(ctx context.Context) (string, error)
	// SaveSession attaches project and chat state to an existing code,
	// marking it used. Repeated saves overwrite the mutable fields but
	// never regress the activation time.
	SaveSession(ctx context.Context, state *entity.SessionState) (*entity.CodeRecord, error)
	// Resolve returns the record for a normalized code. Pure read.
	Resolve(ctx context.Context, code string) (*entity.CodeRecord, error)
}
