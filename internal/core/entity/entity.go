// Package entity holds the domain records of the workforce hierarchy
// (Department → Team → Project → Assignment/Task, plus User) together with the
// change sets that callers propose against them.
package entity

type Type string

const (
	TypeDepartment Type = "department"
	TypeTeam       Type = "team"
	TypeProject    Type = "project"
	TypeAssignment Type = "assignment"
	TypeTask       Type = "task"
	TypeUser       Type = "user"
)

// Types lists every entity type in hierarchy order.
var Types = []Type{TypeDepartment, TypeTeam, TypeProject, TypeAssignment, TypeTask, TypeUser}

func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

type Operation string

const (
	OpCreate     Operation = "create"
	OpRead       Operation = "read"
	OpList       Operation = "list"
	OpUpdate     Operation = "update"
	OpDeactivate Operation = "deactivate"
	OpDelete     Operation = "delete"
)

var Operations = []Operation{OpCreate, OpRead, OpList, OpUpdate, OpDeactivate, OpDelete}

// IsRemoval reports whether the operation takes a record out of service.
func (o Operation) IsRemoval() bool {
	return o == OpDelete || o == OpDeactivate
}

func (o Operation) IsRead() bool {
	return o == OpRead || o == OpList
}

func (o Operation) Valid() bool {
	for _, known := range Operations {
		if o == known {
			return true
		}
	}
	return false
}
