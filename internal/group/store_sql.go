package group

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

type CreateInput struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Subject         string `json:"subject,omitempty"`
	AcademicYear    string `json:"academic_year,omitempty"`
	MaxStudents     int    `json:"max_students,omitempty"`
	IsPublic        *bool  `json:"is_public,omitempty"`
	Password        string `json:"password,omitempty"`
	RequireApproval bool   `json:"require_approval,omitempty"`
}

// Create inserts a group with a fresh invite code and enrolls the creator
// as owner. Retries the code on a unique-index collision.
func (s *SQLStore) Create(ctx context.Context, in CreateInput, createdBy string) (StudyGroup, error) {
	g := StudyGroup{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Description:     in.Description,
		CreatedBy:       createdBy,
		Subject:         in.Subject,
		AcademicYear:    in.AcademicYear,
		MaxStudents:     in.MaxStudents,
		IsPublic:        true,
		RequireApproval: in.RequireApproval,
		IsActive:        true,
		CreatedAt:       time.Now().Unix(),
	}
	if in.IsPublic != nil {
		g.IsPublic = *in.IsPublic
	}
	if g.MaxStudents == 0 {
		g.MaxStudents = 30
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 12)
		if err != nil {
			return StudyGroup{}, err
		}
		g.passwordHash = string(hash)
	}

	for attempt := 0; ; attempt++ {
		g.InviteCode = NewInviteCode()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO study_groups
			   (id, name, description, invite_code, created_by, subject, academic_year,
			    max_students, is_public, password_hash, require_approval, is_active, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE,$12)`,
			g.ID, g.Name, nullable(g.Description), g.InviteCode, g.CreatedBy,
			nullable(g.Subject), nullable(g.AcademicYear), g.MaxStudents,
			g.IsPublic, nullable(g.passwordHash), g.RequireApproval, g.CreatedAt)
		if err == nil {
			break
		}
		if attempt < 3 && isUniqueViolation(err) {
			continue
		}
		return StudyGroup{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, role, joined_at, is_active)
		 VALUES ($1,$2,$3,$4,$5,TRUE)`,
		uuid.NewString(), g.ID, createdBy, RoleOwner, g.CreatedAt)
	if err != nil {
		return StudyGroup{}, err
	}
	return g, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (StudyGroup, error) {
	return s.getBy(ctx, "id=$1", id)
}

// GetByInviteCode finds a group by code, case-insensitively.
func (s *SQLStore) GetByInviteCode(ctx context.Context, code string) (StudyGroup, error) {
	return s.getBy(ctx, "invite_code=$1", strings.ToUpper(strings.TrimSpace(code)))
}

func (s *SQLStore) getBy(ctx context.Context, cond string, arg any) (StudyGroup, error) {
	var g StudyGroup
	var desc, subject, year, pwHash sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, invite_code, created_by, subject, academic_year,
		        max_students, is_public, password_hash, require_approval, is_active, created_at
		   FROM study_groups WHERE `+cond+` AND is_active=TRUE`, arg).
		Scan(&g.ID, &g.Name, &desc, &g.InviteCode, &g.CreatedBy, &subject, &year,
			&g.MaxStudents, &g.IsPublic, &pwHash, &g.RequireApproval, &g.IsActive, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StudyGroup{}, ErrGroupNotFound
		}
		return StudyGroup{}, err
	}
	g.Description = desc.String
	g.Subject = subject.String
	g.AcademicYear = year.String
	g.passwordHash = pwHash.String
	return g, nil
}

// ListPublic returns active public groups.
func (s *SQLStore) ListPublic(ctx context.Context, limit, offset int) ([]StudyGroup, error) {
	return s.list(ctx,
		`SELECT id, name, COALESCE(description,''), invite_code, created_by,
		        COALESCE(subject,''), COALESCE(academic_year,''),
		        max_students, is_public, require_approval, is_active, created_at
		   FROM study_groups
		  WHERE is_public=TRUE AND is_active=TRUE
		  ORDER BY created_at DESC LIMIT $1 OFFSET $2`, clampLimit(limit), offset)
}

// ListForUser returns groups the user belongs to or created.
func (s *SQLStore) ListForUser(ctx context.Context, userID string) ([]StudyGroup, error) {
	return s.list(ctx,
		`SELECT DISTINCT g.id, g.name, COALESCE(g.description,''), g.invite_code, g.created_by,
		        COALESCE(g.subject,''), COALESCE(g.academic_year,''),
		        g.max_students, g.is_public, g.require_approval, g.is_active, g.created_at
		   FROM study_groups g
		   LEFT JOIN group_members m ON m.group_id=g.id AND m.user_id=$1 AND m.is_active=TRUE
		  WHERE g.is_active=TRUE AND (m.user_id IS NOT NULL OR g.created_by=$1)
		  ORDER BY g.created_at DESC`, userID)
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]StudyGroup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StudyGroup
	for rows.Next() {
		var g StudyGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.InviteCode, &g.CreatedBy,
			&g.Subject, &g.AcademicYear, &g.MaxStudents, &g.IsPublic,
			&g.RequireApproval, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Join enrolls a user: rejects duplicates and full groups, checks the
// password of closed groups, and lands in "pending" when the group
// requires approval.
func (s *SQLStore) Join(ctx context.Context, groupID, userID, password string) (Member, error) {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return Member{}, err
	}
	if _, err := s.GetMember(ctx, groupID, userID); err == nil {
		return Member{}, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotMember) {
		return Member{}, err
	}

	if g.MaxStudents > 0 {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM group_members WHERE group_id=$1 AND is_active=TRUE`,
			groupID).Scan(&n)
		if err != nil {
			return Member{}, err
		}
		if n >= g.MaxStudents {
			return Member{}, ErrGroupFull
		}
	}

	if !g.IsPublic && g.passwordHash != "" {
		if password == "" {
			return Member{}, ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(g.passwordHash), []byte(password)) != nil {
			return Member{}, ErrWrongPassword
		}
	}

	m := Member{
		GroupID:  groupID,
		UserID:   userID,
		Role:     RoleStudent,
		JoinedAt: time.Now().Unix(),
		IsActive: true,
	}
	if g.RequireApproval {
		m.Role = RolePending
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, role, joined_at, is_active)
		 VALUES ($1,$2,$3,$4,$5,TRUE)`,
		uuid.NewString(), m.GroupID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Member{}, ErrAlreadyMember
		}
		return Member{}, err
	}
	return m, nil
}

func (s *SQLStore) GetMember(ctx context.Context, groupID, userID string) (Member, error) {
	var m Member
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id, user_id, role, joined_at, is_active
		   FROM group_members WHERE group_id=$1 AND user_id=$2 AND is_active=TRUE`,
		groupID, userID).
		Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Member{}, ErrNotMember
		}
		return Member{}, err
	}
	return m, nil
}

// CanView reports whether the user is a member or the creator.
func (s *SQLStore) CanView(ctx context.Context, groupID, userID string) (bool, error) {
	if _, err := s.GetMember(ctx, groupID, userID); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotMember) {
		return false, err
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return false, err
	}
	return g.CreatedBy == userID, nil
}

func (s *SQLStore) ListMembers(ctx context.Context, groupID string, limit, offset int) ([]MemberInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, COALESCE(u.first_name,''), COALESCE(u.last_name,''),
		        m.role, m.joined_at
		   FROM group_members m
		   JOIN users u ON u.id=m.user_id
		  WHERE m.group_id=$1 AND m.is_active=TRUE
		  ORDER BY m.joined_at LIMIT $2 OFFSET $3`,
		groupID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberInfo
	for rows.Next() {
		var m MemberInfo
		if err := rows.Scan(&m.UserID, &m.Username, &m.FirstName, &m.LastName,
			&m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite & postgres wording
		strings.Contains(msg, "duplicate key")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
