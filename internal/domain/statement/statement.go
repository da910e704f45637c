package statement

import (
	"errors"
	"time"
)

// Statement is the persisted result of one successful generation run.
// Once saved it is immutable: no update path exists anywhere in the repos.
type Statement struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Input     Input     `json:"input"`
	Text      string    `json:"statement"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the validated snapshot of the fields the user submitted.
type Input struct {
	ProjectType string `json:"projectType"`
	Domain      string `json:"domain,omitempty"`
	Objective   string `json:"objective"`
	Audience    string `json:"audience,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

// GenerateRequest is the HTTP payload for POST /statements.
// Binding catches shape errors early; the prompt builder re-validates
// trimmed content so whitespace-only fields are still rejected.
type GenerateRequest struct {
	ProjectType string `json:"projectType" binding:"required,max=120"`
	Domain      string `json:"domain" binding:"omitempty,max=120"`
	Objective   string `json:"objective" binding:"required,max=2000"`
	Audience    string `json:"audience" binding:"omitempty,max=500"`
	Timeline    string `json:"timeline" binding:"omitempty,max=200"`
	Budget      string `json:"budget" binding:"omitempty,max=200"`
	Constraints string `json:"constraints" binding:"omitempty,max=1000"`
}

func (r GenerateRequest) ToInput() Input {
	return Input{
		ProjectType: r.ProjectType,
		Domain:      r.Domain,
		Objective:   r.Objective,
		Audience:    r.Audience,
		Timeline:    r.Timeline,
		Budget:      r.Budget,
		Constraints: r.Constraints,
	}
}

var ErrNotFound = errors.New("statement not found")
