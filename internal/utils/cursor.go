package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// StatementCursor marks a position in an owner's statement list,
// ordered created_at DESC, id DESC.
type StatementCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeStatementCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(StatementCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeStatementCursor(cursor string) (StatementCursor, error) {
	if cursor == "" {
		return StatementCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return StatementCursor{}, err
	}

	var c StatementCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return StatementCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return StatementCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
