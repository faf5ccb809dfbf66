package models

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

var allowedRoles = map[string]struct{}{
	RoleStudent: {},
	RoleStaff:   {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
