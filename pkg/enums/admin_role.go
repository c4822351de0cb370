package enums

import "fmt"

// AdminRole scopes what a back-office user may do with an event panel.
type AdminRole string

const (
	AdminRoleOwner AdminRole = "owner"
	AdminRoleStaff AdminRole = "staff"
)

func (r AdminRole) String() string {
	return string(r)
}

func (r AdminRole) IsValid() bool {
	switch r {
	case AdminRoleOwner, AdminRoleStaff:
		return true
	default:
		return false
	}
}

func ParseAdminRole(value string) (AdminRole, error) {
	r := AdminRole(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid admin role %q", value)
	}
	return r, nil
}
