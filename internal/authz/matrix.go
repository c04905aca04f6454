package authz

import (
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// MatrixRow describes who may perform one operation on one entity type.
type MatrixRow struct {
	Entity    entity.Type      `json:"entity"`
	Operation entity.Operation `json:"operation"`
	Admin     string           `json:"admin"`
	Manager   string           `json:"manager"`
	Employee  string           `json:"employee"`
}

// Matrix renders the rule table in hierarchy order.
func Matrix() []MatrixRow {
	var rows []MatrixRow
	for _, e := range entity.Types {
		for _, op := range entity.Operations {
			row := MatrixRow{Entity: e, Operation: op}
			if _, unsupported := Unsupported(e, op); unsupported {
				row.Admin, row.Manager, row.Employee = "never", "never", "never"
				rows = append(rows, row)
				continue
			}
			row.Admin = "all"
			if e == entity.TypeUser && op.IsRemoval() {
				row.Admin = "all but self"
			}
			row.Manager = label(e, op, role.Manager)
			row.Employee = label(e, op, role.Employee)
			rows = append(rows, row)
		}
	}
	return rows
}

func label(e entity.Type, op entity.Operation, r role.Role) string {
	grant, ok := lookup(e, op, r)
	if !ok {
		return "-"
	}
	return grant.Label
}
