package exam

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

// Service is the session state machine: it gates when submissions and
// completion are allowed, runs the evaluator, and keeps session totals
// consistent with the stored answer set.
type Service struct {
	questions QuestionSource
	tests     TestSource
	sessions  SessionStore
	listeners []CompletionListener
	now       func() time.Time
	newID     func() string
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithCompletionListener(l CompletionListener) ServiceOption {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

func NewService(q QuestionSource, t TestSource, sess SessionStore, opts ...ServiceOption) *Service {
	s := &Service{
		questions: q,
		tests:     t,
		sessions:  sess,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AnswerInput is one submitted answer as it arrives from the client. The
// selection payload stays serialized; parsing is the evaluator's job and is
// lenient by design.
type AnswerInput struct {
	QuestionID         string `json:"question_id"`
	Text               string `json:"answer_text,omitempty"`
	SelectedSerialized string `json:"selected_option_ids,omitempty"`
	TimeSpentSec       int    `json:"time_spent_sec,omitempty"`
}

// StartSession creates a new open session for user and test, enforcing the
// test's attempt limit (0 = unlimited). MaxScore is pre-populated from the
// test's question-weight set.
func (s *Service) StartSession(ctx context.Context, userID, testID, assignmentID string) (Session, error) {
	t, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return Session{}, err
	}
	prior, err := s.sessions.CountSessions(ctx, userID, testID)
	if err != nil {
		return Session{}, err
	}
	if t.MaxAttempts != 0 && prior >= t.MaxAttempts {
		return Session{}, ErrAttemptLimit
	}
	weights, err := s.tests.QuestionWeights(ctx, testID)
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		ID:            s.newID(),
		UserID:        userID,
		TestID:        testID,
		AssignmentID:  assignmentID,
		Status:        SessionOpen,
		AttemptNumber: prior + 1,
		MaxScore:      maxScore(weights),
		StartedAt:     s.now().Unix(),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// SubmitAnswer evaluates one answer and upserts it. Resubmitting the same
// question replaces the prior record; totals are recomputed from the full
// answer set, so repeated identical submissions leave the score unchanged.
func (s *Service) SubmitAnswer(ctx context.Context, userID, sessionID string, in AnswerInput) (Answer, ScoreSnapshot, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return Answer{}, ScoreSnapshot{}, err
	}
	if sess.Status != SessionOpen {
		return Answer{}, ScoreSnapshot{}, ErrSessionClosed
	}
	q, err := s.questions.GradingQuestion(ctx, in.QuestionID)
	if err != nil {
		return Answer{}, ScoreSnapshot{}, err
	}
	weights, err := s.tests.QuestionWeights(ctx, sess.TestID)
	if err != nil {
		return Answer{}, ScoreSnapshot{}, err
	}

	res := grading.Evaluate(q, effectivePoints(weights, q), grading.Submission{
		Text:               in.Text,
		SelectedSerialized: in.SelectedSerialized,
	})

	now := s.now().Unix()
	ans := Answer{
		SessionID:    sessionID,
		QuestionID:   in.QuestionID,
		Text:         in.Text,
		SelectedIDs:  grading.ParseSelection(in.SelectedSerialized),
		Correct:      res.Correct,
		Points:       res.Points,
		TimeSpentSec: in.TimeSpentSec,
		AnsweredAt:   now,
		UpdatedAt:    now,
	}

	answers, err := s.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return Answer{}, ScoreSnapshot{}, err
	}
	totals := snapshot(scoreWith(answers, ans), maxScore(weights))
	if err := s.sessions.SaveAnswer(ctx, ans, totals); err != nil {
		return Answer{}, ScoreSnapshot{}, err
	}
	return ans, totals, nil
}

// CompleteSession closes an open session: final recompute, finished_at,
// time_spent. Completing twice is rejected and mutates nothing.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string) (Session, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == SessionCompleted {
		return Session{}, ErrAlreadyCompleted
	}
	totals, answers, err := s.recompute(ctx, sess)
	if err != nil {
		return Session{}, err
	}

	finished := s.now().Unix()
	spent := finished - sess.StartedAt
	if spent < 0 {
		spent = 0
	}
	sess.Status = SessionCompleted
	sess.FinishedAt = finished
	sess.TimeSpentSec = int(spent)
	sess.Score = totals.Score
	sess.MaxScore = totals.MaxScore
	sess.Percentage = totals.Percentage

	if err := s.sessions.FinalizeSession(ctx, sess); err != nil {
		return Session{}, err
	}
	for _, l := range s.listeners {
		if err := l.SessionCompleted(ctx, sess, answers); err != nil {
			log.Printf("completion listener: session %s: %v", sess.ID, err)
		}
	}
	return sess, nil
}

// Recompute derives fresh totals for a session from its stored answers and
// its test's weight set. Safe to call redundantly; it never accumulates.
func (s *Service) Recompute(ctx context.Context, sessionID string) (ScoreSnapshot, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return ScoreSnapshot{}, err
	}
	totals, _, err := s.recompute(ctx, sess)
	return totals, err
}

// GetSession returns a session visible to the requesting user.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (Session, error) {
	return s.ownedSession(ctx, userID, sessionID)
}

// SessionHistory returns the user's own attempts at a test, newest first.
// The test must exist; a user with no attempts gets an empty list.
func (s *Service) SessionHistory(ctx context.Context, userID, testID string) ([]Session, error) {
	if _, err := s.tests.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	return s.sessions.ListSessions(ctx, userID, testID)
}

// ListAnswers returns the answer records of a session the user owns.
func (s *Service) ListAnswers(ctx context.Context, userID, sessionID string) ([]Answer, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListAnswers(ctx, sessionID)
}

func (s *Service) recompute(ctx context.Context, sess Session) (ScoreSnapshot, []Answer, error) {
	// an unresolvable test is a hard NotFound, never estimated around
	if _, err := s.tests.GetTest(ctx, sess.TestID); err != nil {
		return ScoreSnapshot{}, nil, err
	}
	weights, err := s.tests.QuestionWeights(ctx, sess.TestID)
	if err != nil {
		return ScoreSnapshot{}, nil, err
	}
	answers, err := s.sessions.ListAnswers(ctx, sess.ID)
	if err != nil {
		return ScoreSnapshot{}, nil, err
	}
	score := 0
	for _, a := range answers {
		score += a.Points
	}
	return snapshot(score, maxScore(weights)), answers, nil
}

func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (Session, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	// sessions of other users are indistinguishable from absent ones
	if sess.UserID != userID {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// effectivePoints resolves the value of one question: per-test weight, then
// the question's intrinsic points, then 1.
func effectivePoints(weights []QuestionWeight, q grading.Question) int {
	for _, w := range weights {
		if w.QuestionID == q.ID {
			return resolve(w)
		}
	}
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// maxScore is the total achievable over every question bound to the test,
// independent of what was answered.
func maxScore(weights []QuestionWeight) int {
	sum := 0
	for _, w := range weights {
		sum += resolve(w)
	}
	return sum
}

func resolve(w QuestionWeight) int {
	if w.TestPoints > 0 {
		return w.TestPoints
	}
	if w.IntrinsicPoints > 0 {
		return w.IntrinsicPoints
	}
	return 1
}

func scoreWith(answers []Answer, latest Answer) int {
	sum := latest.Points
	for _, a := range answers {
		if a.QuestionID == latest.QuestionID {
			continue
		}
		sum += a.Points
	}
	return sum
}

// snapshot fixes the rounding policy: nearest integer, ties away from zero.
func snapshot(score, max int) ScoreSnapshot {
	pct := 0
	if max > 0 {
		pct = int(math.Round(100 * float64(score) / float64(max)))
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}
	return ScoreSnapshot{Score: score, MaxScore: max, Percentage: pct}
}
