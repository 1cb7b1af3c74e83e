package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Account roles. New registrations default to student.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username or email already taken")
	ErrBadCredential = errors.New("invalid username or password")
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`

	passwordHash string
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

const bcryptCost = 12

// Create registers an account with a bcrypt password hash.
func (s *UserStore) Create(ctx context.Context, u User, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, err
	}
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = RoleStudent
	}
	u.IsActive = true
	u.CreatedAt = time.Now().Unix()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users
		   (id, username, email, password_hash, first_name, last_name, role, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,$8)`,
		u.ID, u.Username, u.Email, string(hash),
		nullEmpty(u.FirstName), nullEmpty(u.LastName), u.Role, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getBy(ctx, "id=$1", id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.getBy(ctx, "username=$1", username)
}

func (s *UserStore) getBy(ctx context.Context, cond string, arg any) (User, error) {
	var u User
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, first_name, last_name,
		        role, is_active, created_at
		   FROM users WHERE `+cond+` AND is_active=TRUE`, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.passwordHash, &first, &last,
			&u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.FirstName, u.LastName = first.String, last.String
	return u, nil
}

// Authenticate verifies the password against the stored hash. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrBadCredential
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return User{}, ErrBadCredential
	}
	return u, nil
}

// ChangePassword verifies the old password before writing the new hash.
func (s *UserStore) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(oldPassword)) != nil {
		return ErrBadCredential
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID)
	return err
}

// List returns active accounts, newest first.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, COALESCE(first_name,''), COALESCE(last_name,''),
		        role, is_active, created_at
		   FROM users WHERE is_active=TRUE
		  ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
