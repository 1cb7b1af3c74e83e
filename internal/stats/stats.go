// Package stats maintains per-user, per-category answer statistics and
// serves the user progress rollup.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
)

// CategoryStat is the accumulated record for one user in one question
// category. CategoryID is empty for uncategorized questions.
type CategoryStat struct {
	UserID         string `json:"user_id"`
	CategoryID     string `json:"category_id,omitempty"`
	CategoryName   string `json:"category_name,omitempty"`
	TestsCompleted int    `json:"tests_completed"`
	TotalQuestions int    `json:"total_questions"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalPoints    int    `json:"total_points"`
	BestScore      int    `json:"best_score"` // best session percentage seen
	TotalTimeSec   int    `json:"total_time_sec"`
	LastActivity   int64  `json:"last_activity"`
}

// Summary is the overall rollup served by the statistics endpoint.
type Summary struct {
	UserID          string         `json:"user_id"`
	TestsCompleted  int            `json:"tests_completed"`
	TotalQuestions  int            `json:"total_questions"`
	CorrectAnswers  int            `json:"correct_answers"`
	TotalPoints     int            `json:"total_points"`
	BestScore       int            `json:"best_score"`
	AccuracyPercent float64        `json:"accuracy_percent"`
	TotalTimeSec    int            `json:"total_time_sec"`
	ByCategory      []CategoryStat `json:"by_category"`
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

var _ exam.CompletionListener = (*SQLStore)(nil)

// SessionCompleted folds the session's answers into the user's per-category
// counters. Called after finalization; an error here is logged by the
// caller and never undoes the completion.
func (s *SQLStore) SessionCompleted(ctx context.Context, sess exam.Session, answers []exam.Answer) error {
	type bucket struct {
		questions int
		correct   int
		points    int
		timeSec   int
	}
	byCategory := map[string]*bucket{}
	for _, a := range answers {
		catID, err := s.questionCategory(ctx, a.QuestionID)
		if err != nil {
			return err
		}
		b := byCategory[catID]
		if b == nil {
			b = &bucket{}
			byCategory[catID] = b
		}
		b.questions++
		if a.Correct {
			b.correct++
		}
		b.points += a.Points
		b.timeSec += a.TimeSpentSec
	}

	now := time.Now().Unix()
	first := true
	for catID, b := range byCategory {
		// The completed test counts toward the first bucket only, so a
		// multi-category test is still one completion.
		tests := 0
		if first {
			tests = 1
			first = false
		}
		err := s.accumulate(ctx, sess.UserID, catID, tests, b.questions, b.correct,
			b.points, sess.Percentage, b.timeSec, now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) accumulate(ctx context.Context, userID, categoryID string, tests, questions, correct, points, sessionPct, timeSec int, now int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_statistics
		   (id, user_id, category_id, total_tests, total_questions,
		    correct_answers, total_points, best_score, total_time_sec, last_activity)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (user_id, category_id) DO UPDATE SET
		   total_tests=user_statistics.total_tests+EXCLUDED.total_tests,
		   total_questions=user_statistics.total_questions+EXCLUDED.total_questions,
		   correct_answers=user_statistics.correct_answers+EXCLUDED.correct_answers,
		   total_points=user_statistics.total_points+EXCLUDED.total_points,
		   best_score=CASE WHEN EXCLUDED.best_score > user_statistics.best_score
		              THEN EXCLUDED.best_score ELSE user_statistics.best_score END,
		   total_time_sec=user_statistics.total_time_sec+EXCLUDED.total_time_sec,
		   last_activity=EXCLUDED.last_activity`,
		uuid.NewString(), userID, categoryID, tests, questions, correct,
		points, sessionPct, timeSec, now)
	return err
}

func (s *SQLStore) questionCategory(ctx context.Context, questionID string) (string, error) {
	var catID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id FROM questions WHERE id=$1`, questionID).Scan(&catID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // question deleted since the answer was stored
		}
		return "", err
	}
	return catID.String, nil
}

// UserSummary returns the user's overall counters with a per-category
// breakdown. Accuracy is correct/total over every recorded answer.
func (s *SQLStore) UserSummary(ctx context.Context, userID string) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT us.category_id, COALESCE(c.name,''), us.total_tests,
		        us.total_questions, us.correct_answers, us.total_points,
		        us.best_score, us.total_time_sec, us.last_activity
		   FROM user_statistics us
		   LEFT JOIN categories c ON c.id=us.category_id
		  WHERE us.user_id=$1
		  ORDER BY us.total_questions DESC`, userID)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	sum := Summary{UserID: userID}
	for rows.Next() {
		cs := CategoryStat{UserID: userID}
		var catID sql.NullString
		if err := rows.Scan(&catID, &cs.CategoryName, &cs.TestsCompleted,
			&cs.TotalQuestions, &cs.CorrectAnswers, &cs.TotalPoints,
			&cs.BestScore, &cs.TotalTimeSec, &cs.LastActivity); err != nil {
			return Summary{}, err
		}
		cs.CategoryID = catID.String
		sum.ByCategory = append(sum.ByCategory, cs)
		sum.TestsCompleted += cs.TestsCompleted
		sum.TotalQuestions += cs.TotalQuestions
		sum.CorrectAnswers += cs.CorrectAnswers
		sum.TotalPoints += cs.TotalPoints
		if cs.BestScore > sum.BestScore {
			sum.BestScore = cs.BestScore
		}
		sum.TotalTimeSec += cs.TotalTimeSec
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if sum.TotalQuestions > 0 {
		sum.AccuracyPercent = float64(sum.CorrectAnswers) / float64(sum.TotalQuestions) * 100
	}
	return sum, nil
}
