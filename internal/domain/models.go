package domain

import "time"

type Role string

const (
	RoleReviewer Role = "REVIEWER"
	RoleAdmin    Role = "ADMIN"
	RoleViewer   Role = "VIEWER"
)

// AssignableRoles are the roles whose holders may receive review tasks.
var AssignableRoles = []Role{RoleReviewer, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleReviewer, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

type Reviewer struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Expertise []ExpertisePreference
	CreatedAt time.Time
}

// CategoryPriority returns the priority of the reviewer's Category-scope
// preference for category, if one exists.
func (r Reviewer) CategoryPriority(category string) (int, bool) {
	for _, pref := range r.Expertise {
		if pref.Scope == ScopeCategory && pref.Key == category {
			return pref.Priority, true
		}
	}
	return 0, false
}

type Product struct {
	ID        string
	Name      string
	CompanyID string
	Category  string
}

type Assignment struct {
	ProductID  string
	ReviewerID string
	Category   string
}

// MatchResult is the outcome of a single auto-distribute computation.
// Assignments keep the order of the candidate products they came from.
type MatchResult struct {
	Assignments  []Assignment
	Unassignable []string
	Workloads    map[string]int
}

type ReviewTask struct {
	ID          int64
	ProductID   string
	ReviewerID  *string
	Status      TaskStatus
	Priority    TaskPriority
	Deadline    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func (t ReviewTask) Active() bool {
	return t.Status.Active()
}

func (t ReviewTask) AssignedTo(reviewerID string) bool {
	return t.ReviewerID != nil && *t.ReviewerID == reviewerID
}

type ReviewerWorkload struct {
	ReviewerID  string
	Name        string
	ActiveTasks int
}
