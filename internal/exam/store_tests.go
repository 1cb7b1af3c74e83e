package exam

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Access levels a user can hold on a test.
const (
	AccessAdmin       = "admin"
	AccessModerator   = "moderator"
	AccessParticipant = "participant"
)

var ErrAccessNotFound = errors.New("test access not found")

type TestAccess struct {
	TestID    string `json:"test_id"`
	UserID    string `json:"user_id"`
	Level     string `json:"access_level"`
	GrantedBy string `json:"granted_by,omitempty"`
	GrantedAt int64  `json:"granted_at"`
}

// TestSummary is a test row decorated with the viewer's access level, as
// returned by test listings.
type TestSummary struct {
	Test
	UserAccessLevel string `json:"user_access_level"`
}

// CreateTest inserts a test with its question bindings and grants the
// author admin access, all in one transaction.
func (s *SQLStore) CreateTest(ctx context.Context, t Test, questions []TestQuestion) (Test, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	t.CreatedAt, t.UpdatedAt = now, now
	t.IsActive = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Test{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tests
		   (id, title, description, author_id, time_limit_sec, max_attempts,
		    passing_score, show_results, shuffle_questions, shuffle_answers,
		    is_public, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE,$12,$13)`,
		t.ID, t.Title, nullable(t.Description), t.AuthorID, t.TimeLimitSec,
		t.MaxAttempts, t.PassingScore, nullable(t.ShowResults),
		t.ShuffleQ, t.ShuffleA, t.IsPublic, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Test{}, err
	}

	for i, q := range questions {
		order := q.SortOrder
		if order == 0 {
			order = i
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO test_questions (id, test_id, question_id, sort_order, points)
			 VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), t.ID, q.QuestionID, order, q.Points)
		if err != nil {
			return Test{}, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO test_access (id, test_id, user_id, access_level, granted_by, granted_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), t.ID, t.AuthorID, AccessAdmin, t.AuthorID, now)
	if err != nil {
		return Test{}, err
	}
	if err := tx.Commit(); err != nil {
		return Test{}, err
	}
	return t, nil
}

// ListTestsForUser returns public tests plus those the user authored or
// was granted access to, each decorated with the viewer's access level.
func (s *SQLStore) ListTestsForUser(ctx context.Context, userID string, limit, offset int) ([]TestSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, COALESCE(t.description,''), t.author_id,
		        COALESCE(t.time_limit_sec,0), t.max_attempts, COALESCE(t.passing_score,0),
		        COALESCE(t.show_results,''), t.shuffle_questions, t.shuffle_answers,
		        t.is_public, t.is_active, t.created_at, t.updated_at,
		        COALESCE(ta.access_level,'')
		   FROM tests t
		   LEFT JOIN test_access ta ON ta.test_id=t.id AND ta.user_id=$1
		  WHERE t.is_active=TRUE
		    AND (t.is_public=TRUE OR t.author_id=$1 OR ta.access_level IS NOT NULL)
		  ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TestSummary
	for rows.Next() {
		var ts TestSummary
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.Description, &ts.AuthorID,
			&ts.TimeLimitSec, &ts.MaxAttempts, &ts.PassingScore,
			&ts.ShowResults, &ts.ShuffleQ, &ts.ShuffleA,
			&ts.IsPublic, &ts.IsActive, &ts.CreatedAt, &ts.UpdatedAt,
			&ts.UserAccessLevel); err != nil {
			return nil, err
		}
		if ts.UserAccessLevel == "" {
			if ts.AuthorID == userID {
				ts.UserAccessLevel = AccessAdmin
			} else {
				ts.UserAccessLevel = AccessParticipant
			}
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetAccess(ctx context.Context, testID, userID string) (TestAccess, error) {
	var a TestAccess
	var grantedBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT test_id, user_id, access_level, granted_by, granted_at
		   FROM test_access WHERE test_id=$1 AND user_id=$2`,
		testID, userID).
		Scan(&a.TestID, &a.UserID, &a.Level, &grantedBy, &a.GrantedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestAccess{}, ErrAccessNotFound
		}
		return TestAccess{}, err
	}
	a.GrantedBy = grantedBy.String
	return a, nil
}

func (s *SQLStore) GrantAccess(ctx context.Context, a TestAccess) (TestAccess, error) {
	a.GrantedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_access (id, test_id, user_id, access_level, granted_by, granted_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (test_id, user_id) DO UPDATE SET
		   access_level=EXCLUDED.access_level,
		   granted_by=EXCLUDED.granted_by,
		   granted_at=EXCLUDED.granted_at`,
		uuid.NewString(), a.TestID, a.UserID, a.Level, a.GrantedBy, a.GrantedAt)
	if err != nil {
		return TestAccess{}, err
	}
	return a, nil
}

func (s *SQLStore) RevokeAccess(ctx context.Context, testID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM test_access WHERE test_id=$1 AND user_id=$2`, testID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccessNotFound
	}
	return nil
}

func (s *SQLStore) ListAccess(ctx context.Context, testID string) ([]TestAccess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_id, user_id, access_level, COALESCE(granted_by,''), granted_at
		   FROM test_access WHERE test_id=$1 ORDER BY granted_at`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestAccess
	for rows.Next() {
		var a TestAccess
		if err := rows.Scan(&a.TestID, &a.UserID, &a.Level, &a.GrantedBy, &a.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListTestQuestions returns the ordered question bindings of a test.
func (s *SQLStore) ListTestQuestions(ctx context.Context, testID string) ([]TestQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_id, question_id, sort_order, points
		   FROM test_questions WHERE test_id=$1 ORDER BY sort_order, question_id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestQuestion
	for rows.Next() {
		var q TestQuestion
		if err := rows.Scan(&q.TestID, &q.QuestionID, &q.SortOrder, &q.Points); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

