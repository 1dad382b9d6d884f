package rbac

type Role string
type Action string

const (
	RoleOperator  Role = "operator"
	RoleSuperuser Role = "superuser"
)

const (
	ActionRead  Action = "read"
	ActionAdmin Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleSuperuser:
		return true
	case RoleOperator:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleOperator, RoleSuperuser:
		return Role(role)
	default:
		return RoleOperator
	}
}
