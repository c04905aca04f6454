package authz

import "github.com/frahmantamala/workforce-management/internal/core/entity"

// Scope restricts a list operation to the records a principal may see. Only
// one of the id fields is set for a given entity; All means no restriction.
type Scope struct {
	All bool
	// ManagerID keeps records on projects the principal manages.
	ManagerID int64
	// MemberID keeps projects the principal is actively assigned to.
	MemberID int64
	// UserID keeps assignments belonging to the principal.
	UserID int64
	// AssignedTo keeps tasks assigned to the principal.
	AssignedTo int64
	// TeamID keeps users on the team, SelfID adds the principal itself.
	TeamID int64
	SelfID int64
}

// ListScope returns the read scope of p over entities of type e.
func ListScope(p Principal, e entity.Type) Scope {
	if p.IsAdmin() {
		return Scope{All: true}
	}
	switch e {
	case entity.TypeDepartment, entity.TypeTeam:
		return Scope{All: true}
	case entity.TypeProject:
		if p.IsManager() {
			return Scope{ManagerID: p.ID}
		}
		return Scope{MemberID: p.ID}
	case entity.TypeAssignment:
		if p.IsManager() {
			return Scope{ManagerID: p.ID}
		}
		return Scope{UserID: p.ID}
	case entity.TypeTask:
		if p.IsManager() {
			return Scope{ManagerID: p.ID}
		}
		return Scope{AssignedTo: p.ID}
	case entity.TypeUser:
		s := Scope{SelfID: p.ID}
		if p.IsManager() && p.TeamID != nil {
			s.TeamID = *p.TeamID
		}
		return s
	}
	return Scope{SelfID: p.ID}
}
