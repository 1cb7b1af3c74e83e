// Package eventlog is an append-only audit trail of platform activity.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
)

// Event types written by the platform.
const (
	TypeSessionCompleted = "session.completed"
	TypeTestCreated      = "test.created"
	TypeQuestionImport   = "question.import"
	TypeGroupJoined      = "group.joined"
)

type Event struct {
	Offset    int64  `json:"offset"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	ActorID   string `json:"actor_id,omitempty"`
	DataJSON  string `json:"data,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Append(ctx context.Context, e Event) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, actor_id, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Type, e.Key, e.ActorID, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals payload and appends; marshal failures are reported, the
// caller decides whether to ignore them.
func (l *Log) Record(ctx context.Context, typ, key, actorID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return l.Append(ctx, Event{Type: typ, Key: key, ActorID: actorID, DataJSON: string(data)})
}

var _ exam.CompletionListener = (*Log)(nil)

// SessionCompleted appends a session.completed event with the final totals.
func (l *Log) SessionCompleted(ctx context.Context, s exam.Session, _ []exam.Answer) error {
	return l.Record(ctx, TypeSessionCompleted, s.ID, s.UserID, map[string]any{
		"test_id":    s.TestID,
		"score":      s.Score,
		"max_score":  s.MaxScore,
		"percentage": s.Percentage,
		"attempt":    s.AttemptNumber,
	})
}

// List returns events after the given offset, oldest first.
func (l *Log) List(ctx context.Context, afterOffset int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT offset_id, typ, key, COALESCE(actor_id,''), COALESCE(data,''), created_at
		   FROM event_log WHERE offset_id > $1 ORDER BY offset_id LIMIT $2`,
		afterOffset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.ActorID, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
