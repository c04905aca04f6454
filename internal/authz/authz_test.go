package authz_test

import (
	"testing"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuthz(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authz Suite")
}

var _ = Describe("Policy", func() {
	var (
		teamID   = int64(10)
		admin    = authz.Principal{ID: 1, Role: role.Admin}
		manager  = authz.Principal{ID: 2, Role: role.Manager, TeamID: &teamID}
		other    = authz.Principal{ID: 3, Role: role.Manager}
		employee = authz.Principal{ID: 4, Role: role.Employee, TeamID: &teamID}
		team     *entity.Team
		project  *entity.Project
	)

	BeforeEach(func() {
		managerID := manager.ID
		team = &entity.Team{ID: teamID, DepartmentID: 1, ManagerID: &managerID, IsActive: true}
		project = &entity.Project{ID: 20, TeamID: teamID, DepartmentID: 1, ManagerID: &managerID}
	})

	authorize := func(f authz.Facts) authz.Decision {
		return authz.Authorize(&f)
	}

	Describe("precedence", func() {
		It("denies self removal for every role, admins included", func() {
			for _, p := range []authz.Principal{admin, manager, employee} {
				for _, op := range []entity.Operation{entity.OpDelete, entity.OpDeactivate} {
					d := authorize(authz.Facts{Principal: p, Operation: op, Entity: entity.TypeUser, TargetID: p.ID})
					Expect(d.Allowed).To(BeFalse())
					Expect(d.Reason).To(Equal("cannot act on yourself"))
					Expect(d.Code).To(Equal(internal.ErrCodeSelfAction))
				}
			}
		})

		It("treats clearing one's own is_active as self removal", func() {
			off := false
			for _, p := range []authz.Principal{admin, manager, employee} {
				d := authorize(authz.Facts{Principal: p, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: p.ID,
					Changes: &entity.UserChanges{IsActive: &off}})
				Expect(d.Allowed).To(BeFalse())
				Expect(d.Code).To(Equal(internal.ErrCodeSelfAction))
			}
			Expect(authorize(authz.Facts{Principal: admin, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: 42,
				Changes: &entity.UserChanges{IsActive: &off}}).Allowed).To(BeTrue())
		})

		DescribeTable("denies unsupported operations even for admins",
			func(e entity.Type, op entity.Operation) {
				d := authorize(authz.Facts{Principal: admin, Operation: op, Entity: e, TargetID: 99})
				Expect(d.Allowed).To(BeFalse())
				Expect(d.Code).To(Equal(internal.ErrCodeUnsupportedOp))
			},
			Entry("department delete", entity.TypeDepartment, entity.OpDelete),
			Entry("team delete", entity.TypeTeam, entity.OpDelete),
			Entry("project delete", entity.TypeProject, entity.OpDelete),
			Entry("project deactivate", entity.TypeProject, entity.OpDeactivate),
			Entry("assignment delete", entity.TypeAssignment, entity.OpDelete),
			Entry("task delete", entity.TypeTask, entity.OpDelete),
			Entry("task deactivate", entity.TypeTask, entity.OpDeactivate),
		)

		It("points project deletion at the cancelled status", func() {
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpDelete, Entity: entity.TypeProject, Project: project})
			Expect(d.Reason).To(ContainSubstring("CANCELLED"))
		})

		It("allows admins everything else", func() {
			for _, e := range entity.Types {
				for _, op := range entity.Operations {
					if _, unsupported := authz.Unsupported(e, op); unsupported {
						continue
					}
					d := authorize(authz.Facts{Principal: admin, Operation: op, Entity: e, TargetID: 77})
					Expect(d.Allowed).To(BeTrue(), "%s %s", op, e)
				}
			}
		})

		It("denies unknown roles", func() {
			d := authorize(authz.Facts{Principal: authz.Principal{ID: 9, Role: "GUEST"}, Operation: entity.OpRead, Entity: entity.TypeTeam})
			Expect(d.Allowed).To(BeFalse())
		})
	})

	Describe("departments", func() {
		It("is readable by everyone and writable only by admins", func() {
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpList, Entity: entity.TypeDepartment}).Allowed).To(BeTrue())
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeDepartment})
			Expect(d.Allowed).To(BeFalse())
			Expect(d.Code).To(Equal(internal.ErrCodeAdminOnly))
		})
	})

	Describe("teams", func() {
		It("lets a manager create a team they will manage", func() {
			self := manager.ID
			Expect(authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeTeam, Changes: &entity.TeamChanges{}}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeTeam, Changes: &entity.TeamChanges{ManagerID: &self}}).Allowed).To(BeTrue())
		})

		It("denies a manager creating a team for someone else", func() {
			someone := other.ID
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeTeam, Changes: &entity.TeamChanges{ManagerID: &someone}})
			Expect(d.Allowed).To(BeFalse())
		})

		It("lets only the owning manager update or deactivate", func() {
			for _, op := range []entity.Operation{entity.OpUpdate, entity.OpDeactivate} {
				Expect(authorize(authz.Facts{Principal: manager, Operation: op, Entity: entity.TypeTeam, Team: team}).Allowed).To(BeTrue())
				Expect(authorize(authz.Facts{Principal: other, Operation: op, Entity: entity.TypeTeam, Team: team}).Allowed).To(BeFalse())
				Expect(authorize(authz.Facts{Principal: employee, Operation: op, Entity: entity.TypeTeam, Team: team}).Allowed).To(BeFalse())
			}
		})
	})

	Describe("projects", func() {
		It("requires the manager of the target team to create", func() {
			Expect(authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeProject, Team: team}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: other, Operation: entity.OpCreate, Entity: entity.TypeProject, Team: team}).Allowed).To(BeFalse())
		})

		It("requires managing the destination team when moving a project", func() {
			otherID := other.ID
			foreign := &entity.Team{ID: 11, ManagerID: &otherID}
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpUpdate, Entity: entity.TypeProject, Project: project, Team: team, NewTeam: foreign})
			Expect(d.Allowed).To(BeFalse())
			Expect(d.Code).To(Equal(internal.ErrCodeNotTeamManager))
		})

		It("scopes employee reads to assigned projects", func() {
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpRead, Entity: entity.TypeProject, Project: project, OnProject: true}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpRead, Entity: entity.TypeProject, Project: project}).Allowed).To(BeFalse())
		})
	})

	Describe("assignments and tasks", func() {
		It("lets the project manager assign and employees read their own", func() {
			Expect(authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeAssignment, Project: project}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: other, Operation: entity.OpCreate, Entity: entity.TypeAssignment, Project: project}).Allowed).To(BeFalse())
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpCreate, Entity: entity.TypeAssignment, Project: project}).Allowed).To(BeFalse())

			mine := &entity.Assignment{UserID: employee.ID}
			theirs := &entity.Assignment{UserID: 77}
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpRead, Entity: entity.TypeAssignment, Assignment: mine}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpRead, Entity: entity.TypeAssignment, Assignment: theirs}).Allowed).To(BeFalse())
		})

		It("delegates task updates and gates task creation", func() {
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpUpdate, Entity: entity.TypeTask}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpCreate, Entity: entity.TypeTask, Project: project}).Allowed).To(BeFalse())
			Expect(authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeTask, Project: project}).Allowed).To(BeTrue())
		})
	})

	Describe("users", func() {
		It("denies a manager creating a manager", func() {
			r := role.Manager
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeUser, Changes: &entity.UserChanges{Role: &r}})
			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal("cannot assign this role"))
			Expect(d.Err()).To(MatchError(internal.ErrRoleNotAssignable))
		})

		It("allows a manager creating an employee", func() {
			r := role.Employee
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpCreate, Entity: entity.TypeUser, Changes: &entity.UserChanges{Role: &r, TeamID: &teamID}})
			Expect(d.Allowed).To(BeTrue())
		})

		It("stops managers from managing non-employees", func() {
			target := &entity.User{ID: 50, Role: role.Manager, TeamID: &teamID}
			name := "x"
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: 50, User: target, Changes: &entity.UserChanges{Name: &name}})
			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal("managers can only manage employees"))
		})

		It("requires an admin to move a user between teams", func() {
			target := &entity.User{ID: 51, Role: role.Employee, TeamID: &teamID}
			elsewhere := int64(12)
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: 51, User: target, Changes: &entity.UserChanges{TeamID: &elsewhere}})
			Expect(d.Code).To(Equal(internal.ErrCodeTeamChangeForbidden))
			Expect(authorize(authz.Facts{Principal: admin, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: 51, User: target, Changes: &entity.UserChanges{TeamID: &elsewhere}}).Allowed).To(BeTrue())
		})

		It("lets employees edit only their own profile", func() {
			self := &entity.User{ID: employee.ID, Role: role.Employee, TeamID: &teamID}
			name := "New Name"
			promoted := role.Manager
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: self.ID, User: self, Changes: &entity.UserChanges{Name: &name}}).Allowed).To(BeTrue())
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: self.ID, User: self, Changes: &entity.UserChanges{Role: &promoted}}).Allowed).To(BeFalse())
			peer := &entity.User{ID: 60, Role: role.Employee, TeamID: &teamID}
			Expect(authorize(authz.Facts{Principal: employee, Operation: entity.OpUpdate, Entity: entity.TypeUser, TargetID: peer.ID, User: peer, Changes: &entity.UserChanges{Name: &name}}).Allowed).To(BeFalse())
		})

		It("keeps user deletion with admins", func() {
			target := &entity.User{ID: 52, Role: role.Employee, TeamID: &teamID}
			d := authorize(authz.Facts{Principal: manager, Operation: entity.OpDelete, Entity: entity.TypeUser, TargetID: 52, User: target})
			Expect(d.Code).To(Equal(internal.ErrCodeAdminOnly))
		})
	})

	Describe("ListScope", func() {
		It("maps roles onto list restrictions", func() {
			Expect(authz.ListScope(admin, entity.TypeTask).All).To(BeTrue())
			Expect(authz.ListScope(manager, entity.TypeProject).ManagerID).To(Equal(manager.ID))
			Expect(authz.ListScope(employee, entity.TypeProject).MemberID).To(Equal(employee.ID))
			Expect(authz.ListScope(employee, entity.TypeAssignment).UserID).To(Equal(employee.ID))
			Expect(authz.ListScope(employee, entity.TypeTask).AssignedTo).To(Equal(employee.ID))
			s := authz.ListScope(manager, entity.TypeUser)
			Expect(s.TeamID).To(Equal(teamID))
			Expect(s.SelfID).To(Equal(manager.ID))
		})
	})

	Describe("Matrix", func() {
		It("covers every entity and operation", func() {
			rows := authz.Matrix()
			Expect(rows).To(HaveLen(len(entity.Types) * len(entity.Operations)))
			for _, row := range rows {
				if row.Entity == entity.TypeProject && row.Operation == entity.OpDelete {
					Expect(row.Admin).To(Equal("never"))
				}
			}
		})
	})
})
