// Package group implements study groups: invite-code based membership,
// open/closed groups, and test assignments to groups.
package group

import "errors"

// Member roles within a group. A join into a group that requires approval
// lands in "pending" until the owner promotes it.
const (
	RoleOwner   = "owner"
	RoleStudent = "student"
	RolePending = "pending"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAlreadyMember      = errors.New("already a member of this group")
	ErrGroupFull          = errors.New("group member limit reached")
	ErrPasswordRequired   = errors.New("group password required")
	ErrWrongPassword      = errors.New("wrong group password")
	ErrNotMember          = errors.New("not a member of this group")
)

type StudyGroup struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	InviteCode      string `json:"invite_code"`
	CreatedBy       string `json:"created_by"`
	Subject         string `json:"subject,omitempty"`
	AcademicYear    string `json:"academic_year,omitempty"`
	MaxStudents     int    `json:"max_students"`
	IsPublic        bool   `json:"is_public"`
	RequireApproval bool   `json:"require_approval"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       int64  `json:"created_at"`

	passwordHash string
}

type Member struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joined_at"`
	IsActive bool   `json:"is_active"`
}

// MemberInfo is a member row joined with user identity for listings.
type MemberInfo struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
	JoinedAt  int64  `json:"joined_at"`
}

// Assignment binds a test to a group, optionally overriding the test's
// time limit, attempt cap and passing score for that group.
type Assignment struct {
	ID           string `json:"id"`
	TestID       string `json:"test_id"`
	GroupID      string `json:"group_id"`
	AssignedBy   string `json:"assigned_by"`
	StartAt      int64  `json:"start_date,omitempty"`
	EndAt        int64  `json:"end_date,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	PassingScore int    `json:"passing_score,omitempty"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    int64  `json:"created_at"`
}

// AssignedTest is an assignment joined with its test and the viewing
// user's attempt history, as served by the group test listing.
type AssignedTest struct {
	TestID       string         `json:"id"`
	AssignmentID string         `json:"assignment_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	TimeLimitSec int            `json:"time_limit_sec,omitempty"`
	MaxAttempts  int            `json:"max_attempts"`
	PassingScore int            `json:"passing_score,omitempty"`
	StartAt      int64          `json:"start_date,omitempty"`
	EndAt        int64          `json:"end_date,omitempty"`
	AttemptsUsed int            `json:"attempts_used"`
	Latest       *SessionResult `json:"latest_session,omitempty"`
}

type SessionResult struct {
	Score      int   `json:"score"`
	MaxScore   int   `json:"max_score"`
	Percentage int   `json:"percentage"`
	Completed  bool  `json:"is_completed"`
	FinishedAt int64 `json:"finished_at,omitempty"`
}

// MemberStats is one member's rollup across the group's assignments:
// best completed session per assignment.
type MemberStats struct {
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	JoinedAt       int64           `json:"joined_at"`
	CompletedTests int             `json:"completed_tests"`
	TotalTests     int             `json:"total_tests"`
	AveragePercent float64         `json:"average_score"`
	TestScores     []SessionResult `json:"test_scores"`
}

type GroupStats struct {
	GroupID          string        `json:"group_id"`
	TotalMembers     int           `json:"total_members"`
	TotalAssignments int           `json:"total_assignments"`
	Members          []MemberStats `json:"members"`
}
