// Package bank is the question bank: authored questions, their answer
// options, and the category tree they are filed under.
package bank

import "github.com/pomogitepozhaluyst/quiz3/internal/grading"

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

type Question struct {
	ID           string           `json:"id"`
	Text         string           `json:"question_text"`
	Kind         grading.Kind     `json:"answer_kind"`
	CategoryID   string           `json:"category_id,omitempty"`
	AuthorID     string           `json:"author_id"`
	Difficulty   int              `json:"difficulty"`
	Explanation  string           `json:"explanation,omitempty"`
	TimeLimitSec int              `json:"time_limit_sec,omitempty"`
	Points       int              `json:"points"`
	MediaURL     string           `json:"media_url,omitempty"`
	CorrectText  string           `json:"correct_answer,omitempty"`
	Options      []grading.Option `json:"options,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    int64            `json:"created_at,omitempty"`
	UpdatedAt    int64            `json:"updated_at,omitempty"`
}

// StripAnswers removes the answer key before a question is served to a
// test taker: the reference text and every option's correct flag.
func (q Question) StripAnswers() Question {
	q.CorrectText = ""
	opts := make([]grading.Option, len(q.Options))
	for i, o := range q.Options {
		o.Correct = false
		opts[i] = o
	}
	q.Options = opts
	return q
}

type ListOpts struct {
	CategoryID string
	AuthorID   string
	Limit      int
	Offset     int
}
