package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/store"
	"github.com/frahmantamala/workforce-management/internal/store/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPostgresStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Store Suite")
}

var _ = Describe("GORM Store", func() {
	var (
		ctx context.Context
		db  *gorm.DB
		s   *postgres.Store
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())

		// every connection to :memory: is a separate database
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(postgres.AutoMigrate(db)).To(Succeed())
		s = postgres.NewStore(db)
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	seed := func() (deptID, teamID, projectID, userID int64) {
		Expect(s.WithinTx(ctx, func(tx store.Tx) error {
			d := &entity.Department{Name: "Engineering", Code: "ENG", IsActive: true}
			if err := tx.SaveDepartment(d); err != nil {
				return err
			}
			m := &entity.User{Email: "m@corp.io", Name: "M", Role: role.Manager, DepartmentID: &d.ID, IsActive: true}
			if err := tx.SaveUser(m); err != nil {
				return err
			}
			t := &entity.Team{Name: "Core", Code: "CORE", DepartmentID: d.ID, ManagerID: &m.ID, IsActive: true}
			if err := tx.SaveTeam(t); err != nil {
				return err
			}
			u := &entity.User{Email: "e@corp.io", Name: "E", Role: role.Employee, DepartmentID: &d.ID, TeamID: &t.ID, IsActive: true}
			if err := tx.SaveUser(u); err != nil {
				return err
			}
			p := &entity.Project{
				Name: "Apollo", Code: "APL", DepartmentID: d.ID, TeamID: t.ID, ManagerID: &m.ID,
				Status: entity.ProjectPlanned, StartDate: time.Now(),
			}
			if err := tx.SaveProject(p); err != nil {
				return err
			}
			deptID, teamID, projectID, userID = d.ID, t.ID, p.ID, u.ID
			return nil
		})).To(Succeed())
		return
	}

	Describe("round trip", func() {
		It("persists and reloads every field including false flags", func() {
			_, teamID, _, _ := seed()
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				t, err := tx.GetTeam(teamID)
				Expect(err).NotTo(HaveOccurred())
				t.IsActive = false
				Expect(tx.SaveTeam(t)).To(Succeed())
				return nil
			})).To(Succeed())

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				t, err := tx.GetTeam(teamID)
				Expect(err).NotTo(HaveOccurred())
				Expect(t.IsActive).To(BeFalse())
				Expect(t.Code).To(Equal("CORE"))
				return nil
			})).To(Succeed())
		})

		It("maps missing rows to ErrNotFound", func() {
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				_, err := tx.GetProject(404)
				Expect(store.IsNotFound(err)).To(BeTrue())
				Expect(store.IsNotFound(tx.SaveTask(&entity.Task{ID: 404, Title: "x", Status: entity.TaskTodo, Priority: entity.PriorityLow}))).To(BeTrue())
				Expect(store.IsNotFound(tx.DeleteUser(404))).To(BeTrue())
				return nil
			})).To(Succeed())
		})
	})

	Describe("transactions", func() {
		It("rolls back every write when the function fails", func() {
			_, teamID, projectID, _ := seed()
			other := int64(999)
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				p, _ := tx.GetProject(projectID)
				p.ManagerID = &other
				if err := tx.SaveProject(p); err != nil {
					return err
				}
				return errors.New("abort")
			})
			Expect(err).To(MatchError("abort"))

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				projects, _ := tx.ListProjects(store.ProjectFilter{TeamID: teamID})
				Expect(projects).To(HaveLen(1))
				Expect(*projects[0].ManagerID).NotTo(Equal(other))
				return nil
			})).To(Succeed())
		})
	})

	Describe("uq_assignments_active", func() {
		It("rejects a second active assignment but keeps inactive history", func() {
			_, _, projectID, userID := seed()
			now := time.Now()
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				return tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, Role: entity.AssignmentEngineer, AssignedAt: now})
			})).To(Succeed())
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				return tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, Role: entity.AssignmentQA, AssignedAt: now, IsActive: true})
			})).To(Succeed())

			err := s.WithinTx(ctx, func(tx store.Tx) error {
				return tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, Role: entity.AssignmentQA, AssignedAt: now, IsActive: true})
			})
			Expect(store.IsConflict(err)).To(BeTrue())
		})

		It("rejects duplicate codes", func() {
			seed()
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				return tx.SaveDepartment(&entity.Department{Name: "Other", Code: "ENG"})
			})
			Expect(store.IsConflict(err)).To(BeTrue())
		})
	})

	Describe("filters", func() {
		It("scopes projects, assignments and tasks by relationship", func() {
			_, _, projectID, userID := seed()
			var managerID int64
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				p, _ := tx.GetProject(projectID)
				managerID = *p.ManagerID
				if err := tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, Role: entity.AssignmentEngineer, AssignedAt: time.Now(), IsActive: true}); err != nil {
					return err
				}
				for _, st := range []entity.TaskStatus{entity.TaskReview, entity.TaskTodo} {
					t := &entity.Task{ProjectID: projectID, AssignedTo: &userID, Title: string(st), Priority: entity.PriorityMedium, Status: st, StatusOrder: st.Order()}
					if err := tx.SaveTask(t); err != nil {
						return err
					}
				}
				return nil
			})).To(Succeed())

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				member, err := tx.ListProjects(store.ProjectFilter{MemberID: userID})
				Expect(err).NotTo(HaveOccurred())
				Expect(member).To(HaveLen(1))

				managed, err := tx.ListAssignments(store.AssignmentFilter{ManagerID: managerID})
				Expect(err).NotTo(HaveOccurred())
				Expect(managed).To(HaveLen(1))

				active := false
				inactive, err := tx.ListAssignments(store.AssignmentFilter{Active: &active})
				Expect(err).NotTo(HaveOccurred())
				Expect(inactive).To(BeEmpty())

				tasks, err := tx.ListTasks(store.TaskFilter{ManagerID: managerID})
				Expect(err).NotTo(HaveOccurred())
				Expect(tasks).To(HaveLen(2))
				Expect(tasks[0].Status).To(Equal(entity.TaskTodo))
				Expect(tasks[1].Status).To(Equal(entity.TaskReview))

				users, err := tx.ListUsers(store.UserFilter{Email: "E@CORP.IO"})
				Expect(err).NotTo(HaveOccurred())
				Expect(users).To(HaveLen(1))
				return nil
			})).To(Succeed())
		})
	})
})
