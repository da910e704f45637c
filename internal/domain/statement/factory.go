package statement

import (
	"time"

	"github.com/google/uuid"
)

// New builds a persisted-ready statement for ownerID, snapshotting the
// prompt input alongside the generated text.
func New(ownerID string, in Input, text string) Statement {
	return Statement{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Input:     in,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
