// Package cursor persists the single resumption token of the update stream.
package cursor

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by Load when a stored record cannot be decoded.
// Callers treat it as a virgin start.
var ErrCorrupt = errors.New("cursor record is corrupt")

// Store loads and saves the cursor. Load returns nil when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*string, error)
	Save(ctx context.Context, cursor string) error
}

// State is the persisted record: {"cursor": string|null}.
type State struct {
	Cursor *string `json:"cursor"`
}
