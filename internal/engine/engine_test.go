package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/events"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/engine"
	"github.com/frahmantamala/workforce-management/internal/store"
	"github.com/frahmantamala/workforce-management/internal/store/memory"
	"github.com/frahmantamala/workforce-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestEngine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Engine Suite")
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		s   *memory.Store
		bus *events.EventBus
		eng *engine.Engine

		admin, m1, m2, employee, peer *entity.User
		dept                          *entity.Department
		team                          *entity.Team
		p1, p2                        *entity.Project
	)

	as := func(u *entity.User) authz.Principal { return authz.PrincipalOf(u) }

	evaluate := func(u *entity.User, in engine.Intent) (*engine.Result, error) {
		return eng.Evaluate(ctx, as(u), in)
	}

	codeOf := func(err error) internal.ErrorCode {
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
		return appErr.Code
	}

	reload := func(u *entity.User) *entity.User {
		var fresh *entity.User
		Expect(s.WithinTx(ctx, func(tx store.Tx) error {
			var err error
			fresh, err = tx.GetUser(u.ID)
			return err
		})).To(Succeed())
		return fresh
	}

	BeforeEach(func() {
		ctx = context.Background()
		s = memory.New()
		bus = events.NewEventBus(logger.Discard())
		eng = engine.New(s, bus, logger.Discard(),
			engine.WithClock(func() time.Time { return fixedNow }),
			engine.WithBCryptCost(bcrypt.MinCost))

		Expect(s.WithinTx(ctx, func(tx store.Tx) error {
			dept = &entity.Department{Name: "Engineering", Code: "ENG", IsActive: true}
			if err := tx.SaveDepartment(dept); err != nil {
				return err
			}
			admin = &entity.User{Email: "admin@corp.io", Name: "Admin", Role: role.Admin, IsActive: true}
			m1 = &entity.User{Email: "m1@corp.io", Name: "M1", Role: role.Manager, DepartmentID: entity.Ptr(dept.ID), IsActive: true}
			m2 = &entity.User{Email: "m2@corp.io", Name: "M2", Role: role.Manager, DepartmentID: entity.Ptr(dept.ID), IsActive: true}
			for _, u := range []*entity.User{admin, m1, m2} {
				if err := tx.SaveUser(u); err != nil {
					return err
				}
			}
			team = &entity.Team{Name: "Platform", Code: "PLT", DepartmentID: dept.ID, ManagerID: entity.Ptr(m1.ID), IsActive: true}
			if err := tx.SaveTeam(team); err != nil {
				return err
			}
			m1.TeamID = entity.Ptr(team.ID)
			if err := tx.SaveUser(m1); err != nil {
				return err
			}
			employee = &entity.User{Email: "e1@corp.io", Name: "E1", Role: role.Employee, DepartmentID: entity.Ptr(dept.ID), TeamID: entity.Ptr(team.ID), IsActive: true}
			peer = &entity.User{Email: "e2@corp.io", Name: "E2", Role: role.Employee, DepartmentID: entity.Ptr(dept.ID), TeamID: entity.Ptr(team.ID), IsActive: true}
			for _, u := range []*entity.User{employee, peer} {
				if err := tx.SaveUser(u); err != nil {
					return err
				}
			}
			p1 = &entity.Project{Name: "Billing", Code: "BIL", TeamID: team.ID, DepartmentID: dept.ID, ManagerID: entity.Ptr(m1.ID), Status: entity.ProjectActive, StartDate: fixedNow}
			p2 = &entity.Project{Name: "Ledger", Code: "LDG", TeamID: team.ID, DepartmentID: dept.ID, ManagerID: entity.Ptr(m1.ID), Status: entity.ProjectActive, StartDate: fixedNow}
			for _, p := range []*entity.Project{p1, p2} {
				if err := tx.SaveProject(p); err != nil {
					return err
				}
			}
			return nil
		})).To(Succeed())
	})

	assign := func(actor, u *entity.User, p *entity.Project) (*engine.Result, error) {
		return evaluate(actor, engine.Intent{
			Operation: entity.OpCreate,
			Entity:    entity.TypeAssignment,
			Changes: &entity.AssignmentChanges{
				ProjectID: entity.Ptr(p.ID),
				UserID:    entity.Ptr(u.ID),
				Role:      entity.Ptr(entity.AssignmentEngineer),
			},
		})
	}

	createTask := func(assignee *entity.User) *entity.Task {
		res, err := evaluate(m1, engine.Intent{
			Operation: entity.OpCreate,
			Entity:    entity.TypeTask,
			Changes: &entity.TaskChanges{
				ProjectID:  entity.Ptr(p1.ID),
				Title:      entity.Ptr("Ship invoices"),
				AssignedTo: entity.Ptr(assignee.ID),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return res.Record.(*entity.Task)
	}

	setStatus := func(actor *entity.User, t *entity.Task, status entity.TaskStatus) (*engine.Result, error) {
		return evaluate(actor, engine.Intent{
			Operation: entity.OpUpdate,
			Entity:    entity.TypeTask,
			ID:        t.ID,
			Changes:   &entity.TaskChanges{Status: entity.Ptr(status)},
		})
	}

	Describe("active assignment uniqueness", func() {
		It("lets exactly one of many concurrent activations succeed", func() {
			const attempts = 10
			var (
				wg         sync.WaitGroup
				successes  atomic.Int32
				violations atomic.Int32
			)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := assign(m1, employee, p1)
					if err == nil {
						successes.Add(1)
						return
					}
					if errors.Is(err, internal.ErrDuplicateAssignment) {
						violations.Add(1)
					}
				}()
			}
			wg.Wait()
			Expect(successes.Load()).To(Equal(int32(1)))
			Expect(violations.Load()).To(Equal(int32(attempts - 1)))
		})
	})

	Describe("team manager propagation", func() {
		It("moves every project of the team to the new manager in one step", func() {
			res, err := evaluate(admin, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m2.ID)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allowed).To(BeTrue())
			Expect(res.Derived["propagated_project_ids"]).To(ConsistOf(p1.ID, p2.ID))

			list, err := evaluate(admin, engine.Intent{Operation: entity.OpList, Entity: entity.TypeProject, Query: entity.Query{TeamID: team.ID}})
			Expect(err).NotTo(HaveOccurred())
			projects := list.Records.([]*entity.Project)
			Expect(projects).To(HaveLen(2))
			for _, p := range projects {
				Expect(*p.ManagerID).To(Equal(m2.ID))
			}
		})

		It("applies none of the change when a project write fails", func() {
			calls := 0
			s.SetWriteHook(func(kind entity.Type, id int64) error {
				if kind == entity.TypeProject && id == p2.ID {
					calls++
					return errors.New("connection reset")
				}
				return nil
			})
			res, err := evaluate(admin, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m2.ID)},
			})
			Expect(err).To(HaveOccurred())
			Expect(res.Allowed).To(BeFalse())
			Expect(calls).To(Equal(1))
			s.SetWriteHook(nil)

			list, err := evaluate(admin, engine.Intent{Operation: entity.OpList, Entity: entity.TypeProject})
			Expect(err).NotTo(HaveOccurred())
			for _, p := range list.Records.([]*entity.Project) {
				Expect(*p.ManagerID).To(Equal(m1.ID))
			}
			read, err := evaluate(admin, engine.Intent{Operation: entity.OpRead, Entity: entity.TypeTeam, ID: team.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(*read.Record.(*entity.Team).ManagerID).To(Equal(m1.ID))
		})

		It("publishes the manager change after commit", func() {
			received := make(chan events.Event, 1)
			bus.Subscribe(events.EventTypeTeamManagerChanged, func(_ context.Context, e events.Event) error {
				received <- e
				return nil
			})
			_, err := evaluate(m1, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m2.ID)},
			})
			Expect(err).NotTo(HaveOccurred())

			var e events.Event
			Eventually(received).Should(Receive(&e))
			changed := e.(*events.TeamManagerChangedEvent)
			Expect(changed.PreviousManagerID).To(Equal(m1.ID))
			Expect(changed.ManagerID).To(Equal(m2.ID))
			Expect(changed.PropagatedProjects).To(ConsistOf(p1.ID, p2.ID))
		})

		It("denies a manager who does not manage the team", func() {
			_, err := evaluate(m2, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m2.ID)},
			})
			Expect(internal.IsAuthorizationDenied(err)).To(BeTrue())
			Expect(codeOf(err)).To(Equal(internal.ErrCodeNotTeamManager))
		})
	})

	Describe("manager team membership", func() {
		var (
			data *entity.Team
			m3   *entity.User
		)

		BeforeEach(func() {
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				data = &entity.Team{Name: "Data", Code: "DAT", DepartmentID: dept.ID, ManagerID: entity.Ptr(m2.ID), IsActive: true}
				if err := tx.SaveTeam(data); err != nil {
					return err
				}
				m2.TeamID = entity.Ptr(data.ID)
				if err := tx.SaveUser(m2); err != nil {
					return err
				}
				m3 = &entity.User{Email: "m3@corp.io", Name: "M3", Role: role.Manager, DepartmentID: entity.Ptr(dept.ID), TeamID: entity.Ptr(data.ID), IsActive: true}
				return tx.SaveUser(m3)
			})).To(Succeed())
		})

		newTeam := func(managerID *int64) engine.Intent {
			return engine.Intent{
				Operation: entity.OpCreate,
				Entity:    entity.TypeTeam,
				Changes: &entity.TeamChanges{
					Name:         entity.Ptr("Security"),
					Code:         entity.Ptr("SEC"),
					DepartmentID: entity.Ptr(dept.ID),
					ManagerID:    managerID,
				},
			}
		}

		It("keeps a manager of an active team from creating a second one", func() {
			_, err := evaluate(m1, newTeam(nil))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeManagerOfActiveTeam))
			Expect(*reload(m1).TeamID).To(Equal(team.ID))

			_, err = evaluate(admin, newTeam(entity.Ptr(m1.ID)))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeManagerOfActiveTeam))
			Expect(*reload(m1).TeamID).To(Equal(team.ID))
		})

		It("needs an admin to pull a team member onto a new team", func() {
			_, err := evaluate(m3, newTeam(nil))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeTeamChangeForbidden))
			Expect(*reload(m3).TeamID).To(Equal(data.ID))

			res, err := evaluate(admin, newTeam(entity.Ptr(m3.ID)))
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(m3).TeamID).To(Equal(res.Record.(*entity.Team).ID))
		})

		It("needs an admin to hand a team to a member of another team", func() {
			handOver := engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m3.ID)},
			}
			_, err := evaluate(m1, handOver)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeTeamChangeForbidden))
			Expect(*reload(m3).TeamID).To(Equal(data.ID))

			_, err = evaluate(admin, handOver)
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(m3).TeamID).To(Equal(team.ID))
		})

		It("never hands a team to the manager of another active team", func() {
			_, err := evaluate(admin, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTeam,
				ID:        team.ID,
				Changes:   &entity.TeamChanges{ManagerID: entity.Ptr(m2.ID)},
			})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeManagerOfActiveTeam))
			Expect(*reload(m2).TeamID).To(Equal(data.ID))
		})
	})

	Describe("task lifecycle", func() {
		BeforeEach(func() {
			_, err := assign(m1, employee, p1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps the status order in step with every status change", func() {
			t := createTask(employee)
			Expect(t.StatusOrder).To(Equal(1))

			path := []entity.TaskStatus{entity.TaskInProgress, entity.TaskReview, entity.TaskBlocked, entity.TaskInProgress, entity.TaskDone}
			for _, status := range path {
				res, err := setStatus(m1, t, status)
				Expect(err).NotTo(HaveOccurred())
				t = res.Record.(*entity.Task)
				Expect(t.StatusOrder).To(Equal(status.Order()))
			}
			Expect(t.CompletedAt).NotTo(BeNil())
		})

		It("denies an employee unblocking and lets the manager do it", func() {
			t := createTask(employee)
			res, err := setStatus(employee, t, entity.TaskBlocked)
			Expect(err).NotTo(HaveOccurred())
			t = res.Record.(*entity.Task)

			_, err = setStatus(employee, t, entity.TaskInProgress)
			Expect(internal.IsAuthorizationDenied(err)).To(BeTrue())

			res, err = setStatus(m1, t, entity.TaskInProgress)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Record.(*entity.Task).Status).To(Equal(entity.TaskInProgress))
		})

		It("rejects editing a done task, even by its assignee or an admin", func() {
			t := createTask(employee)
			for _, status := range []entity.TaskStatus{entity.TaskInProgress, entity.TaskDone} {
				_, err := setStatus(employee, t, status)
				Expect(err).NotTo(HaveOccurred())
			}

			for _, actor := range []*entity.User{employee, m1, admin} {
				_, err := evaluate(actor, engine.Intent{
					Operation: entity.OpUpdate,
					Entity:    entity.TypeTask,
					ID:        t.ID,
					Changes:   &entity.TaskChanges{Description: entity.Ptr("late edit")},
				})
				Expect(err).To(MatchError(internal.ErrTaskDone))
				Expect(internal.IsImmutableState(err)).To(BeTrue())
			}
		})

		It("only reassigns to users actively assigned to the project", func() {
			t := createTask(employee)
			reassign := engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTask,
				ID:        t.ID,
				Changes:   &entity.TaskChanges{AssignedTo: entity.Ptr(peer.ID)},
			}
			_, err := evaluate(m1, reassign)
			Expect(err).To(MatchError(internal.ErrAssigneeNotOnProject))

			_, err = assign(m1, peer, p1)
			Expect(err).NotTo(HaveOccurred())
			res, err := evaluate(m1, reassign)
			Expect(err).NotTo(HaveOccurred())
			Expect(*res.Record.(*entity.Task).AssignedTo).To(Equal(peer.ID))

			_, err = evaluate(employee, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeTask,
				ID:        t.ID,
				Changes:   &entity.TaskChanges{AssignedTo: entity.Ptr(employee.ID)},
			})
			Expect(internal.IsAuthorizationDenied(err)).To(BeTrue())
		})
	})

	Describe("users", func() {
		newUser := func(r role.Role) engine.Intent {
			return engine.Intent{
				Operation: entity.OpCreate,
				Entity:    entity.TypeUser,
				Changes: &entity.UserChanges{
					Email:    entity.Ptr(string(r) + "@corp.io"),
					Name:     entity.Ptr("New " + string(r)),
					Password: entity.Ptr("s3cret-password"),
					Role:     entity.Ptr(r),
					TeamID:   entity.Ptr(team.ID),
				},
			}
		}

		It("lets a manager create employees but not managers", func() {
			_, err := evaluate(m1, newUser(role.Manager))
			Expect(internal.IsAuthorizationDenied(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("cannot assign this role"))

			res, err := evaluate(m1, newUser(role.Employee))
			Expect(err).NotTo(HaveOccurred())
			created := res.Record.(*entity.User)
			Expect(created.Role).To(Equal(role.Employee))
			Expect(*created.DepartmentID).To(Equal(dept.ID))
			Expect(bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-password"))).To(Succeed())
		})

		It("stops every role from removing itself", func() {
			for _, u := range []*entity.User{admin, m1, employee} {
				for _, op := range []entity.Operation{entity.OpDeactivate, entity.OpDelete} {
					_, err := evaluate(u, engine.Intent{Operation: op, Entity: entity.TypeUser, ID: u.ID})
					Expect(err).To(MatchError(internal.ErrSelfAction))
				}
			}
		})

		It("stops every role from deactivating itself through an update", func() {
			for _, u := range []*entity.User{admin, m1, employee} {
				res, err := evaluate(u, engine.Intent{
					Operation: entity.OpUpdate,
					Entity:    entity.TypeUser,
					ID:        u.ID,
					Changes:   &entity.UserChanges{IsActive: entity.Ptr(false)},
				})
				Expect(err).To(MatchError(internal.ErrSelfAction))
				Expect(res.Allowed).To(BeFalse())
				Expect(reload(u).IsActive).To(BeTrue())
			}

			_, err := evaluate(admin, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeUser,
				ID:        admin.ID,
				Changes:   &entity.UserChanges{Name: entity.Ptr("Root"), IsActive: entity.Ptr(true)},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("stops managers from acting on other managers", func() {
			_, err := evaluate(m1, engine.Intent{Operation: entity.OpDeactivate, Entity: entity.TypeUser, ID: m2.ID})
			Expect(err).To(MatchError(internal.ErrEmployeesOnly))
		})

		It("requires an admin to move a user between teams", func() {
			var other *entity.Team
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				other = &entity.Team{Name: "Data", Code: "DAT", DepartmentID: dept.ID, ManagerID: entity.Ptr(m2.ID), IsActive: true}
				return tx.SaveTeam(other)
			})).To(Succeed())
			move := engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeUser,
				ID:        employee.ID,
				Changes:   &entity.UserChanges{TeamID: entity.Ptr(other.ID)},
			}
			_, err := evaluate(m1, move)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeTeamChangeForbidden))

			_, err = evaluate(admin, move)
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(employee).TeamID).To(Equal(other.ID))
		})

		It("lets employees edit only their own profile", func() {
			_, err := evaluate(employee, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeUser,
				ID:        employee.ID,
				Changes:   &entity.UserChanges{Name: entity.Ptr("Renamed")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reload(employee).Name).To(Equal("Renamed"))

			_, err = evaluate(employee, engine.Intent{
				Operation: entity.OpUpdate,
				Entity:    entity.TypeUser,
				ID:        employee.ID,
				Changes:   &entity.UserChanges{Role: entity.Ptr(role.Manager)},
			})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeFieldForbidden))
		})
	})

	Describe("deactivation", func() {
		It("rejects deactivating a team twice", func() {
			_, err := evaluate(admin, engine.Intent{Operation: entity.OpDeactivate, Entity: entity.TypeTeam, ID: team.ID})
			Expect(err).NotTo(HaveOccurred())

			res, err := evaluate(admin, engine.Intent{Operation: entity.OpDeactivate, Entity: entity.TypeTeam, ID: team.ID})
			Expect(res.Allowed).To(BeFalse())
			Expect(internal.IsConstraintViolation(err)).To(BeTrue())
			Expect(err).To(MatchError(internal.ErrAlreadyInactive))
		})

		It("refuses unsupported removals before looking the record up", func() {
			_, err := evaluate(admin, engine.Intent{Operation: entity.OpDelete, Entity: entity.TypeProject, ID: 999})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeUnsupportedOp))
		})
	})

	Describe("reads and lists", func() {
		It("scopes projects to what the principal manages or is assigned to", func() {
			_, err := assign(m1, employee, p2)
			Expect(err).NotTo(HaveOccurred())

			res, err := evaluate(employee, engine.Intent{Operation: entity.OpList, Entity: entity.TypeProject})
			Expect(err).NotTo(HaveOccurred())
			projects := res.Records.([]*entity.Project)
			Expect(projects).To(HaveLen(1))
			Expect(projects[0].ID).To(Equal(p2.ID))

			_, err = evaluate(employee, engine.Intent{Operation: entity.OpRead, Entity: entity.TypeProject, ID: p1.ID})
			Expect(internal.IsAuthorizationDenied(err)).To(BeTrue())

			res, err = evaluate(m2, engine.Intent{Operation: entity.OpList, Entity: entity.TypeProject})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Records).To(BeEmpty())
		})

		It("returns nothing when a query asks outside the principal's scope", func() {
			res, err := evaluate(m2, engine.Intent{Operation: entity.OpList, Entity: entity.TypeProject, Query: entity.Query{ManagerID: m1.ID}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Records).To(BeEmpty())
		})

		It("reports a missing record as not found", func() {
			_, err := evaluate(admin, engine.Intent{Operation: entity.OpRead, Entity: entity.TypeTask, ID: 4242})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})

		It("returns field errors with the result", func() {
			res, err := evaluate(admin, engine.Intent{
				Operation: entity.OpCreate,
				Entity:    entity.TypeDepartment,
				Changes:   &entity.DepartmentChanges{},
			})
			Expect(internal.IsConstraintViolation(err)).To(BeTrue())
			Expect(res.Errors).To(HaveLen(2))
		})
	})
})
