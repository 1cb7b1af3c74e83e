package exam

// SessionStatus is the lifecycle state of a test session. There is no
// transition out of "completed"; retakes create a new session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionCompleted SessionStatus = "completed"
)

type Test struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	AuthorID     string `json:"author_id"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
	MaxAttempts  int    `json:"max_attempts"` // 0 = unlimited
	PassingScore int    `json:"passing_score,omitempty"`
	ShowResults  string `json:"show_results,omitempty"`
	ShuffleQ     bool   `json:"shuffle_questions"`
	ShuffleA     bool   `json:"shuffle_answers"`
	IsPublic     bool   `json:"is_public"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	UpdatedAt    int64  `json:"updated_at,omitempty"`
}

// TestQuestion binds a question into a test with the point value the
// question is worth within that test.
type TestQuestion struct {
	TestID     string `json:"test_id"`
	QuestionID string `json:"question_id"`
	SortOrder  int    `json:"sort_order"`
	Points     int    `json:"points"`
}

// QuestionWeight is the weight-resolution view for one question bound to a
// test: the per-test points plus the question's intrinsic points to fall
// back on.
type QuestionWeight struct {
	QuestionID      string
	TestPoints      int
	IntrinsicPoints int
}

type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	TestID        string        `json:"test_id"`
	AssignmentID  string        `json:"assignment_id,omitempty"`
	Status        SessionStatus `json:"status"`
	AttemptNumber int           `json:"attempt_number"`
	Score         int           `json:"score"`
	MaxScore      int           `json:"max_score"`
	Percentage    int           `json:"percentage"`
	StartedAt     int64         `json:"started_at"`
	FinishedAt    int64         `json:"finished_at,omitempty"`
	TimeSpentSec  int           `json:"time_spent_sec,omitempty"`
}

// Answer is the stored result for one question within one session. At most
// one row exists per (session, question); resubmission overwrites it.
type Answer struct {
	SessionID    string   `json:"session_id"`
	QuestionID   string   `json:"question_id"`
	Text         string   `json:"answer_text,omitempty"`
	SelectedIDs  []string `json:"selected_option_ids,omitempty"`
	Correct      bool     `json:"is_correct"`
	Points       int      `json:"points_earned"`
	TimeSpentSec int      `json:"time_spent_sec,omitempty"`
	AnsweredAt   int64    `json:"answered_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// ScoreSnapshot is a recomputed set of session totals.
type ScoreSnapshot struct {
	Score      int `json:"score"`
	MaxScore   int `json:"max_score"`
	Percentage int `json:"percentage"`
}
