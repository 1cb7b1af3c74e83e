package group

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

type AssignInput struct {
	TestID       string `json:"test_id"`
	StartAt      int64  `json:"start_date,omitempty"`
	EndAt        int64  `json:"end_date,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	PassingScore int    `json:"passing_score,omitempty"`
}

func (s *SQLStore) Assign(ctx context.Context, groupID, assignedBy string, in AssignInput) (Assignment, error) {
	a := Assignment{
		ID:           uuid.NewString(),
		TestID:       in.TestID,
		GroupID:      groupID,
		AssignedBy:   assignedBy,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		TimeLimitSec: in.TimeLimitSec,
		MaxAttempts:  in.MaxAttempts,
		PassingScore: in.PassingScore,
		IsActive:     true,
		CreatedAt:    time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_assignments
		   (id, test_id, group_id, assigned_by, start_date, end_date,
		    time_limit_sec, max_attempts, passing_score, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10)`,
		a.ID, a.TestID, a.GroupID, a.AssignedBy, zeroNull(a.StartAt), zeroNull(a.EndAt),
		a.TimeLimitSec, a.MaxAttempts, a.PassingScore, a.CreatedAt)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	var a Assignment
	var startAt, endAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, test_id, group_id, assigned_by, start_date, end_date,
		        time_limit_sec, max_attempts, passing_score, is_active, created_at
		   FROM test_assignments WHERE id=$1 AND is_active=TRUE`, id).
		Scan(&a.ID, &a.TestID, &a.GroupID, &a.AssignedBy, &startAt, &endAt,
			&a.TimeLimitSec, &a.MaxAttempts, &a.PassingScore, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, ErrAssignmentNotFound
		}
		return Assignment{}, err
	}
	a.StartAt, a.EndAt = startAt.Int64, endAt.Int64
	return a, nil
}

// ListAssignedTests returns the group's assigned tests with per-assignment
// overrides applied over the test's own settings, plus the viewing user's
// attempt usage and latest session.
func (s *SQLStore) ListAssignedTests(ctx context.Context, groupID, userID string) ([]AssignedTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, a.id, t.title, COALESCE(t.description,''),
		        COALESCE(t.time_limit_sec,0), t.max_attempts, COALESCE(t.passing_score,0),
		        a.time_limit_sec, a.max_attempts, a.passing_score,
		        a.start_date, a.end_date
		   FROM test_assignments a
		   JOIN tests t ON t.id=a.test_id
		  WHERE a.group_id=$1 AND a.is_active=TRUE AND t.is_active=TRUE
		  ORDER BY a.created_at DESC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssignedTest
	for rows.Next() {
		var at AssignedTest
		var testTL, testMA, testPS, asgTL, asgMA, asgPS int
		var startAt, endAt sql.NullInt64
		if err := rows.Scan(&at.TestID, &at.AssignmentID, &at.Title, &at.Description,
			&testTL, &testMA, &testPS, &asgTL, &asgMA, &asgPS,
			&startAt, &endAt); err != nil {
			return nil, err
		}
		at.TimeLimitSec = override(asgTL, testTL)
		at.MaxAttempts = override(asgMA, testMA)
		at.PassingScore = override(asgPS, testPS)
		at.StartAt, at.EndAt = startAt.Int64, endAt.Int64
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.fillUserProgress(ctx, &out[i], userID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) fillUserProgress(ctx context.Context, at *AssignedTest, userID string) error {
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_sessions WHERE assignment_id=$1 AND user_id=$2`,
		at.AssignmentID, userID).Scan(&at.AttemptsUsed)
	if err != nil {
		return err
	}
	var r SessionResult
	var status string
	var finishedAt sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT score, max_score, percentage, status, finished_at
		   FROM test_sessions
		  WHERE assignment_id=$1 AND user_id=$2
		  ORDER BY started_at DESC LIMIT 1`,
		at.AssignmentID, userID).
		Scan(&r.Score, &r.MaxScore, &r.Percentage, &status, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	r.Completed = status == "completed"
	r.FinishedAt = finishedAt.Int64
	at.Latest = &r
	return nil
}

// Stats rolls up each member's best completed session per assignment.
func (s *SQLStore) Stats(ctx context.Context, groupID string) (GroupStats, error) {
	members, err := s.ListMembers(ctx, groupID, 0, 0)
	if err != nil {
		return GroupStats{}, err
	}
	assignments, err := s.listAssignmentIDs(ctx, groupID)
	if err != nil {
		return GroupStats{}, err
	}

	stats := GroupStats{
		GroupID:          groupID,
		TotalMembers:     len(members),
		TotalAssignments: len(assignments),
	}
	for _, m := range members {
		ms := MemberStats{
			UserID:     m.UserID,
			Username:   m.Username,
			JoinedAt:   m.JoinedAt,
			TotalTests: len(assignments),
		}
		totalScore, totalMax := 0, 0
		for _, asgID := range assignments {
			var r SessionResult
			err := s.db.QueryRowContext(ctx,
				`SELECT score, max_score, percentage
				   FROM test_sessions
				  WHERE assignment_id=$1 AND user_id=$2 AND status='completed'
				  ORDER BY score DESC LIMIT 1`,
				asgID, m.UserID).Scan(&r.Score, &r.MaxScore, &r.Percentage)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return GroupStats{}, err
			}
			r.Completed = true
			ms.TestScores = append(ms.TestScores, r)
			totalScore += r.Score
			totalMax += r.MaxScore
			ms.CompletedTests++
		}
		if totalMax > 0 {
			ms.AveragePercent = math.Round(float64(totalScore)/float64(totalMax)*1000) / 10
		}
		stats.Members = append(stats.Members, ms)
	}
	return stats, nil
}

func (s *SQLStore) listAssignmentIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM test_assignments WHERE group_id=$1 AND is_active=TRUE`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func override(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func zeroNull(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
