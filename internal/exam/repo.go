package exam

import (
	"context"
	"errors"

	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

// Lookup failures and lifecycle violations surfaced to callers. Data-shape
// oddities (missing weight, empty option set, malformed selection payloads)
// are not errors; they grade through documented fallbacks instead.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSessionClosed    = errors.New("session is closed")
	ErrAlreadyCompleted = errors.New("session already completed")
	ErrAttemptLimit     = errors.New("attempt limit reached")
)

// QuestionSource resolves a question id to its grading view (kind, options
// with correct flags, reference text, intrinsic points).
type QuestionSource interface {
	GradingQuestion(ctx context.Context, id string) (grading.Question, error)
}

// TestSource resolves tests and their question-weight sets.
type TestSource interface {
	GetTest(ctx context.Context, id string) (Test, error)
	QuestionWeights(ctx context.Context, testID string) ([]QuestionWeight, error)
}

// SessionStore persists sessions and their answer records. SaveAnswer must
// upsert the (session_id, question_id) row and write the session totals in
// one atomic step, so duplicate submissions racing each other can never
// produce two rows or a double-counted score.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	CountSessions(ctx context.Context, userID, testID string) (int, error)
	ListSessions(ctx context.Context, userID, testID string) ([]Session, error)
	ListAnswers(ctx context.Context, sessionID string) ([]Answer, error)
	SaveAnswer(ctx context.Context, a Answer, totals ScoreSnapshot) error
	FinalizeSession(ctx context.Context, s Session) error
}

// CompletionListener is notified after a session finalizes. Statistics and
// event-log sinks hang off this; their failures never roll back completion.
type CompletionListener interface {
	SessionCompleted(ctx context.Context, s Session, answers []Answer) error
}
