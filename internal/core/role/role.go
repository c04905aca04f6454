package role

import (
	"fmt"
	"strings"
)

type Role string

const (
	Admin    Role = "ADMIN"
	Manager  Role = "MANAGER"
	Employee Role = "EMPLOYEE"
)

// All lists the roles from highest to lowest precedence.
var All = []Role{Admin, Manager, Employee}

func (r Role) rank() int {
	switch r {
	case Admin:
		return 3
	case Manager:
		return 2
	case Employee:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.rank() > 0
}

func (r Role) String() string {
	return string(r)
}

// Parse accepts the canonical upper-case form as well as lower-case input.
func Parse(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Outranks reports whether a is strictly above b.
func Outranks(a, b Role) bool {
	return a.Valid() && a.rank() > b.rank()
}

// IsAtLeast reports whether r is threshold or above. Unknown roles never qualify.
func IsAtLeast(r, threshold Role) bool {
	return r.Valid() && r.rank() >= threshold.rank()
}

// CanAssign reports whether a principal holding actor may give target to a user.
// Admins may hand out any role; managers only Employee.
func CanAssign(actor, target Role) bool {
	if !target.Valid() {
		return false
	}
	switch actor {
	case Admin:
		return true
	case Manager:
		return target == Employee
	default:
		return false
	}
}
