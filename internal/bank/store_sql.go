package bank

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrCategoryNotFound = errors.New("category not found")
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Points <= 0 {
		q.Points = 1
	}
	if q.Difficulty <= 0 {
		q.Difficulty = 1
	}
	now := time.Now().Unix()
	q.CreatedAt, q.UpdatedAt = now, now
	q.IsActive = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions
		   (id, question_text, answer_kind, category_id, author_id, difficulty,
		    explanation, time_limit_sec, points, media_url, correct_answer,
		    is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE,$12,$13)`,
		q.ID, q.Text, string(q.Kind), nullable(q.CategoryID), q.AuthorID, q.Difficulty,
		nullable(q.Explanation), q.TimeLimitSec, q.Points, nullable(q.MediaURL),
		nullable(q.CorrectText), q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return Question{}, err
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answer_options (id, question_id, option_text, is_correct, sort_order)
			 VALUES ($1,$2,$3,$4,$5)`,
			q.Options[i].ID, q.ID, q.Options[i].Text, q.Options[i].Correct, i)
		if err != nil {
			return Question{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	var q Question
	var kind string
	var category, explanation, mediaURL, correct sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_text, answer_kind, category_id, author_id, difficulty,
		        explanation, time_limit_sec, points, media_url, correct_answer,
		        is_active, created_at, updated_at
		   FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.Text, &kind, &category, &q.AuthorID, &q.Difficulty,
			&explanation, &q.TimeLimitSec, &q.Points, &mediaURL, &correct,
			&q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	q.Kind = grading.Kind(kind)
	q.CategoryID = category.String
	q.Explanation = explanation.String
	q.MediaURL = mediaURL.String
	q.CorrectText = correct.String

	q.Options, err = s.questionOptions(ctx, id)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) questionOptions(ctx context.Context, questionID string) ([]grading.Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, option_text, is_correct FROM answer_options
		  WHERE question_id=$1 ORDER BY sort_order, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []grading.Option
	for rows.Next() {
		var o grading.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.Correct); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuestions(ctx context.Context, opts ListOpts) ([]Question, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 100
	}
	where := []string{"is_active=TRUE"}
	args := []any{}
	if opts.CategoryID != "" {
		args = append(args, opts.CategoryID)
		where = append(where, "category_id=$"+itoa(len(args)))
	}
	if opts.AuthorID != "" {
		args = append(args, opts.AuthorID)
		where = append(where, "author_id=$"+itoa(len(args)))
	}
	args = append(args, opts.Limit, opts.Offset)
	query := `SELECT id, question_text, answer_kind, category_id, author_id, difficulty,
	                 explanation, time_limit_sec, points, media_url, correct_answer,
	                 is_active, created_at, updated_at
	            FROM questions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var kind string
		var category, explanation, mediaURL, correct sql.NullString
		if err := rows.Scan(&q.ID, &q.Text, &kind, &category, &q.AuthorID, &q.Difficulty,
			&explanation, &q.TimeLimitSec, &q.Points, &mediaURL, &correct,
			&q.IsActive, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		q.Kind = grading.Kind(kind)
		q.CategoryID = category.String
		q.Explanation = explanation.String
		q.MediaURL = mediaURL.String
		q.CorrectText = correct.String
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		opts, err := s.questionOptions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Options = opts
	}
	return out, nil
}

func (s *SQLStore) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, color, icon, parent_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, nullable(c.Description), nullable(c.Color),
		nullable(c.Icon), nullable(c.ParentID), c.CreatedAt)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description,''), COALESCE(color,''),
		        COALESCE(icon,''), COALESCE(parent_id,''), created_at
		   FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color,
			&c.Icon, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetOrCreateCategory resolves a category by (case-insensitive) name,
// creating it when absent. Bulk import leans on this.
func (s *SQLStore) GetOrCreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, ErrCategoryNotFound
	}
	var c Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description,''), created_at
		   FROM categories WHERE LOWER(name)=LOWER($1)`, name).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Category{}, err
	}
	return s.CreateCategory(ctx, Category{Name: name})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func itoa(n int) string { return strconv.Itoa(n) }
