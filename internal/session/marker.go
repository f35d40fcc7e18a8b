// Package session remembers which user logged in last so a restart can
// restore the session.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Key is the name the marker is stored under.
const Key = "lastLoggedInUserID"

var ErrMarkerStorage = errors.New("session marker storage failure")

// Marker persists the id of the last user who logged in.
type Marker interface {
	// Load returns the stored id. ok is false when no marker was ever saved.
	Load(ctx context.Context) (id uuid.UUID, ok bool, err error)
	Save(ctx context.Context, id uuid.UUID) error
}
