package domain

import (
	"fmt"
	"strings"
)

type PreferenceScope string

const (
	ScopeCategory PreferenceScope = "CATEGORY"
	ScopeCompany  PreferenceScope = "COMPANY"
	ScopeProduct  PreferenceScope = "PRODUCT"
)

const (
	MinExpertisePriority     = 1
	MaxExpertisePriority     = 10
	DefaultExpertisePriority = 5
)

// ParsePreferenceScope accepts scope names case-insensitively.
func ParsePreferenceScope(s string) (PreferenceScope, error) {
	scope := PreferenceScope(strings.ToUpper(strings.TrimSpace(s)))
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
	return scope, nil
}

func (s PreferenceScope) Valid() bool {
	switch s {
	case ScopeCategory, ScopeCompany, ScopeProduct:
		return true
	}
	return false
}

// ExpertisePreference is unique per (reviewer, scope, key). Lower priority
// means closer expertise.
type ExpertisePreference struct {
	Scope    PreferenceScope
	Key      string
	Priority int
}

func ValidateExpertisePriority(priority int) error {
	if priority < MinExpertisePriority || priority > MaxExpertisePriority {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidPriority, priority, MinExpertisePriority, MaxExpertisePriority)
	}
	return nil
}
