package exam

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

// SQLStore backs the session service with database/sql. It works against
// both supported drivers (sqlite, postgres); placeholders use the $N form.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) GradingQuestion(ctx context.Context, id string) (grading.Question, error) {
	var q grading.Question
	var kind, correctText string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, answer_kind, COALESCE(correct_answer,''), points
		   FROM questions WHERE id=$1 AND is_active=TRUE`, id).
		Scan(&q.ID, &kind, &correctText, &q.Points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grading.Question{}, ErrQuestionNotFound
		}
		return grading.Question{}, err
	}
	q.Kind = grading.Kind(kind)
	q.CorrectText = correctText

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, option_text, is_correct FROM answer_options
		  WHERE question_id=$1 ORDER BY sort_order, id`, id)
	if err != nil {
		return grading.Question{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var o grading.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.Correct); err != nil {
			return grading.Question{}, err
		}
		q.Options = append(q.Options, o)
	}
	return q, rows.Err()
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	var t Test
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, COALESCE(description,''), author_id,
		        COALESCE(time_limit_sec,0), max_attempts, COALESCE(passing_score,0),
		        COALESCE(show_results,''), shuffle_questions, shuffle_answers,
		        is_public, is_active, created_at, updated_at
		   FROM tests WHERE id=$1 AND is_active=TRUE`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID,
			&t.TimeLimitSec, &t.MaxAttempts, &t.PassingScore,
			&t.ShowResults, &t.ShuffleQ, &t.ShuffleA,
			&t.IsPublic, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) QuestionWeights(ctx context.Context, testID string) ([]QuestionWeight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tq.question_id, tq.points, q.points
		   FROM test_questions tq
		   JOIN questions q ON q.id = tq.question_id
		  WHERE tq.test_id=$1
		  ORDER BY tq.sort_order, tq.question_id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuestionWeight
	for rows.Next() {
		var w QuestionWeight
		if err := rows.Scan(&w.QuestionID, &w.TestPoints, &w.IntrinsicPoints); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_sessions
		   (id, user_id, test_id, assignment_id, status, attempt_number,
		    score, max_score, percentage, started_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		sess.ID, sess.UserID, sess.TestID, nullable(sess.AssignmentID),
		string(sess.Status), sess.AttemptNumber,
		sess.Score, sess.MaxScore, sess.Percentage, sess.StartedAt)
	return err
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	var status, assignmentID string
	var finishedAt, timeSpent sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, test_id, COALESCE(assignment_id,''), status,
		        attempt_number, score, max_score, percentage,
		        started_at, finished_at, time_spent
		   FROM test_sessions WHERE id=$1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.TestID, &assignmentID, &status,
			&sess.AttemptNumber, &sess.Score, &sess.MaxScore, &sess.Percentage,
			&sess.StartedAt, &finishedAt, &timeSpent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	sess.AssignmentID = assignmentID
	sess.Status = SessionStatus(status)
	sess.FinishedAt = finishedAt.Int64
	sess.TimeSpentSec = int(timeSpent.Int64)
	return sess, nil
}

func (s *SQLStore) CountSessions(ctx context.Context, userID, testID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_sessions WHERE user_id=$1 AND test_id=$2`,
		userID, testID).Scan(&n)
	return n, err
}

func (s *SQLStore) ListAnswers(ctx context.Context, sessionID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, question_id, COALESCE(answer_text,''),
		        COALESCE(selected_options,''), is_correct, points_earned,
		        COALESCE(time_spent,0), answered_at, updated_at
		   FROM user_answers WHERE session_id=$1 ORDER BY answered_at, question_id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var a Answer
		var selected string
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Text, &selected,
			&a.Correct, &a.Points, &a.TimeSpentSec, &a.AnsweredAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.SelectedIDs = grading.ParseSelection(selected)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAnswer upserts the answer row and writes the session totals in one
// transaction. The unique index on (session_id, question_id) makes the
// upsert hold even when duplicate retries race.
func (s *SQLStore) SaveAnswer(ctx context.Context, a Answer, totals ScoreSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_answers
		   (id, session_id, question_id, answer_text, selected_options,
		    is_correct, points_earned, time_spent, answered_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (session_id, question_id) DO UPDATE SET
		   answer_text=EXCLUDED.answer_text,
		   selected_options=EXCLUDED.selected_options,
		   is_correct=EXCLUDED.is_correct,
		   points_earned=EXCLUDED.points_earned,
		   time_spent=EXCLUDED.time_spent,
		   updated_at=EXCLUDED.updated_at`,
		uuid.NewString(), a.SessionID, a.QuestionID,
		nullable(a.Text), nullable(grading.FormatSelection(a.SelectedIDs)),
		a.Correct, a.Points, a.TimeSpentSec, a.AnsweredAt, a.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE test_sessions SET score=$1, max_score=$2, percentage=$3 WHERE id=$4`,
		totals.Score, totals.MaxScore, totals.Percentage, a.SessionID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) FinalizeSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE test_sessions
		    SET status=$1, finished_at=$2, time_spent=$3,
		        score=$4, max_score=$5, percentage=$6
		  WHERE id=$7`,
		string(sess.Status), sess.FinishedAt, sess.TimeSpentSec,
		sess.Score, sess.MaxScore, sess.Percentage, sess.ID)
	return err
}

// ListSessions returns a user's sessions for one test, newest first. Backs
// the attempt history endpoint.
func (s *SQLStore) ListSessions(ctx context.Context, userID, testID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, test_id, COALESCE(assignment_id,''), status,
		        attempt_number, score, max_score, percentage,
		        started_at, finished_at, time_spent
		   FROM test_sessions
		  WHERE user_id=$1 AND test_id=$2
		  ORDER BY started_at DESC`, userID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var sess Session
		var status, assignmentID string
		var finishedAt, timeSpent sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.TestID, &assignmentID, &status,
			&sess.AttemptNumber, &sess.Score, &sess.MaxScore, &sess.Percentage,
			&sess.StartedAt, &finishedAt, &timeSpent); err != nil {
			return nil, err
		}
		sess.AssignmentID = assignmentID
		sess.Status = SessionStatus(status)
		sess.FinishedAt = finishedAt.Int64
		sess.TimeSpentSec = int(timeSpent.Int64)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
