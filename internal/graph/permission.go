package graph

// Permission is a repo permission level. The ordering is load-bearing:
// effective-permission resolution takes the maximum, and downgrades are
// defined as "new <= old" under this order.
type Permission int

const (
	None Permission = iota
	Read
	Triage
	Write
	Maintain
	Admin
)

func (p Permission) String() string {
	switch p {
	case Read:
		return "read"
	case Triage:
		return "triage"
	case Write:
		return "write"
	case Maintain:
		return "maintain"
	case Admin:
		return "admin"
	default:
		return "none"
	}
}

// ParsePermission maps GitHub permission strings (both role names and the
// legacy pull/push/admin forms) to a Permission. Unknown strings map to
// (None, false).
func ParsePermission(s string) (Permission, bool) {
	switch s {
	case "pull", "read":
		return Read, true
	case "triage":
		return Triage, true
	case "push", "write":
		return Write, true
	case "maintain":
		return Maintain, true
	case "admin":
		return Admin, true
	case "none", "":
		return None, true
	default:
		return None, false
	}
}
