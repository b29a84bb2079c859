package enums

import "fmt"

// UserRole separates marketplace buyers from platform admins.
type UserRole string

const (
	UserRoleBuyer UserRole = "BUYER"
	UserRoleAdmin UserRole = "ADMIN"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return r == UserRoleBuyer || r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	switch UserRole(value) {
	case UserRoleBuyer:
		return UserRoleBuyer, nil
	case UserRoleAdmin:
		return UserRoleAdmin, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
