package lifecycle

import (
	"errors"
	"testing"

	"github.com/campusvoice/campus-voice/internal/models"
)

func TestResolveTransition_LegalMoves(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		action  models.Action
		role    models.Role
		want    models.Status
	}{
		{"approve unsolved", models.StatusUnsolved, models.ActionApprove, models.RoleAdmin, models.StatusUnderInvestigation},
		{"reject unsolved", models.StatusUnsolved, models.ActionReject, models.RoleAdmin, models.StatusRejected},
		{"mark solved", models.StatusUnderInvestigation, models.ActionMarkSolved, models.RoleAdmin, models.StatusPendingVerification},
		{"confirm fix", models.StatusPendingVerification, models.ActionConfirmFix, models.RoleStudent, models.StatusSolved},
		{"reopen", models.StatusPendingVerification, models.ActionReopen, models.RoleStudent, models.StatusUnsolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTransition(tt.current, tt.action, tt.role)
			if err != nil {
				t.Fatalf("resolveTransition() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected status %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveTransition_IllegalMoves(t *testing.T) {
	// Every action that has no edge from the given status must be
	// rejected as an invalid transition regardless of the role.
	tests := []struct {
		name    string
		current models.Status
		action  models.Action
	}{
		{"skip investigation", models.StatusUnsolved, models.ActionMarkSolved},
		{"confirm before verification", models.StatusUnsolved, models.ActionConfirmFix},
		{"reopen from unsolved", models.StatusUnsolved, models.ActionReopen},
		{"approve twice", models.StatusUnderInvestigation, models.ActionApprove},
		{"reject under investigation", models.StatusUnderInvestigation, models.ActionReject},
		{"approve pending", models.StatusPendingVerification, models.ActionApprove},
		{"mark solved pending", models.StatusPendingVerification, models.ActionMarkSolved},
		{"act on solved", models.StatusSolved, models.ActionReopen},
		{"act on rejected", models.StatusRejected, models.ActionApprove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, role := range []models.Role{models.RoleStudent, models.RoleAdmin} {
				_, err := resolveTransition(tt.current, tt.action, role)
				if !errors.Is(err, models.ErrInvalidTransition) {
					t.Errorf("Expected ErrInvalidTransition for role %s, got %v", role, err)
				}
			}
		})
	}
}

func TestResolveTransition_WrongRole(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		action  models.Action
		role    models.Role
	}{
		{"student approves", models.StatusUnsolved, models.ActionApprove, models.RoleStudent},
		{"student rejects", models.StatusUnsolved, models.ActionReject, models.RoleStudent},
		{"student marks solved", models.StatusUnderInvestigation, models.ActionMarkSolved, models.RoleStudent},
		{"admin confirms fix", models.StatusPendingVerification, models.ActionConfirmFix, models.RoleAdmin},
		{"admin reopens", models.StatusPendingVerification, models.ActionReopen, models.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveTransition(tt.current, tt.action, tt.role)
			if !errors.Is(err, models.ErrUnauthorized) {
				t.Errorf("Expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestResolveTransition_LegalityBeforeRole(t *testing.T) {
	// A student skipping a stage gets the transition error, not the
	// role error, even though the action would also need admin rights.
	_, err := resolveTransition(models.StatusUnsolved, models.ActionMarkSolved, models.RoleStudent)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if errors.Is(err, models.ErrUnauthorized) {
		t.Error("Expected the transition error, not the authorization error")
	}
}

func TestLegalActions(t *testing.T) {
	adminActions := LegalActions(models.StatusUnsolved, models.RoleAdmin)
	if len(adminActions) != 2 {
		t.Errorf("Expected 2 admin actions from Unsolved, got %d", len(adminActions))
	}

	studentActions := LegalActions(models.StatusUnsolved, models.RoleStudent)
	if len(studentActions) != 0 {
		t.Errorf("Expected no student actions from Unsolved, got %d", len(studentActions))
	}

	verifyActions := LegalActions(models.StatusPendingVerification, models.RoleStudent)
	if len(verifyActions) != 2 {
		t.Errorf("Expected 2 student actions from Pending Verification, got %d", len(verifyActions))
	}

	for _, status := range []models.Status{models.StatusSolved, models.StatusRejected} {
		for _, role := range []models.Role{models.RoleStudent, models.RoleAdmin} {
			if actions := LegalActions(status, role); len(actions) != 0 {
				t.Errorf("Expected no actions from terminal status %q, got %v", status, actions)
			}
		}
	}
}
