package lifecycle

import (
	"fmt"

	"github.com/campusvoice/campus-voice/internal/models"
)

// transition is one edge of the complaint status state machine.
type transition struct {
	To       models.Status
	Requires models.Role
}

// transitionTable is the single source of truth for legal status
// moves. Reopening from Pending Verification is the only backward
// edge; Solved and Rejected are terminal. Verification is open to any
// student, not only the one who reported the complaint.
var transitionTable = map[models.Status]map[models.Action]transition{
	models.StatusUnsolved: {
		models.ActionApprove: {To: models.StatusUnderInvestigation, Requires: models.RoleAdmin},
		models.ActionReject:  {To: models.StatusRejected, Requires: models.RoleAdmin},
	},
	models.StatusUnderInvestigation: {
		models.ActionMarkSolved: {To: models.StatusPendingVerification, Requires: models.RoleAdmin},
	},
	models.StatusPendingVerification: {
		models.ActionConfirmFix: {To: models.StatusSolved, Requires: models.RoleStudent},
		models.ActionReopen:     {To: models.StatusUnsolved, Requires: models.RoleStudent},
	},
}

// resolveTransition returns the status the complaint moves to when
// callerRole performs action from current. Legality from the current
// status is checked before authorization, so skipping a stage reports
// the transition problem even when the role would also be wrong.
func resolveTransition(current models.Status, action models.Action, callerRole models.Role) (models.Status, error) {
	edge, ok := transitionTable[current][action]
	if !ok {
		return "", fmt.Errorf("action %s from status %q: %w", action, current, models.ErrInvalidTransition)
	}
	if callerRole != edge.Requires {
		return "", fmt.Errorf("action %s requires role %s: %w", action, edge.Requires, models.ErrUnauthorized)
	}
	return edge.To, nil
}

// LegalActions lists the actions callerRole may perform from status.
// The presentation layer uses this to decide which buttons to render.
func LegalActions(status models.Status, callerRole models.Role) []models.Action {
	var actions []models.Action
	for action, edge := range transitionTable[status] {
		if edge.Requires == callerRole {
			actions = append(actions, action)
		}
	}
	return actions
}
