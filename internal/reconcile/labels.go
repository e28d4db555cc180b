package reconcile

import "orgaudit/internal/policy"

// SeverityColor maps a rule severity to the label color and description
// used for its rule-id label. The mapping is closed: unknown severities
// get the hidden styling.
func SeverityColor(s policy.Severity) (color, description string) {
	switch s {
	case policy.SeverityError:
		return "b60205", "Policy violation that must be fixed"
	case policy.SeverityWarning:
		return "fbca04", "Policy violation that should be fixed"
	default:
		return "c5def5", "Policy finding kept for reporting"
	}
}
