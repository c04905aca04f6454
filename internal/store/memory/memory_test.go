package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/store"
	"github.com/frahmantamala/workforce-management/internal/store/memory"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMemoryStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Store Suite")
}

var _ = Describe("Memory Store", func() {
	var (
		ctx context.Context
		s   *memory.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = memory.New()
	})

	seedProject := func() (projectID, userID int64) {
		Expect(s.WithinTx(ctx, func(tx store.Tx) error {
			u := &entity.User{Email: "e@corp.io", Name: "E", Role: role.Employee, IsActive: true}
			if err := tx.SaveUser(u); err != nil {
				return err
			}
			p := &entity.Project{Code: "P1", Name: "P1", Status: entity.ProjectPlanned, StartDate: time.Now()}
			if err := tx.SaveProject(p); err != nil {
				return err
			}
			projectID, userID = p.ID, u.ID
			return nil
		})).To(Succeed())
		return projectID, userID
	}

	Describe("WithinTx", func() {
		It("assigns ids on insert and commits on success", func() {
			var id int64
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				d := &entity.Department{Name: "Engineering", Code: "ENG", IsActive: true}
				if err := tx.SaveDepartment(d); err != nil {
					return err
				}
				id = d.ID
				return nil
			})).To(Succeed())
			Expect(id).To(BeNumerically(">", 0))

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				d, err := tx.GetDepartment(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(d.Code).To(Equal("ENG"))
				return nil
			})).To(Succeed())
		})

		It("discards every write when the function fails", func() {
			boom := errors.New("boom")
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				if err := tx.SaveDepartment(&entity.Department{Name: "A", Code: "A"}); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				all, err := tx.ListDepartments(store.DepartmentFilter{})
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(BeEmpty())
				return nil
			})).To(Succeed())
		})

		It("aborts the transaction when the write hook fails", func() {
			s.SetWriteHook(func(kind entity.Type, id int64) error {
				if kind == entity.TypeTeam {
					return errors.New("disk full")
				}
				return nil
			})
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				if err := tx.SaveDepartment(&entity.Department{Name: "A", Code: "A"}); err != nil {
					return err
				}
				return tx.SaveTeam(&entity.Team{Name: "T", Code: "T"})
			})
			Expect(err).To(MatchError("disk full"))

			s.SetWriteHook(nil)
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				all, _ := tx.ListDepartments(store.DepartmentFilter{})
				Expect(all).To(BeEmpty())
				return nil
			})).To(Succeed())
		})

		It("returns copies that do not leak into the store until saved", func() {
			var id int64
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				d := &entity.Department{Name: "A", Code: "A"}
				err := tx.SaveDepartment(d)
				id = d.ID
				return err
			})).To(Succeed())

			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				d, _ := tx.GetDepartment(id)
				d.Name = "changed"
				again, _ := tx.GetDepartment(id)
				Expect(again.Name).To(Equal("A"))
				return nil
			})).To(Succeed())
		})

		It("refuses a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			Expect(s.WithinTx(cctx, func(store.Tx) error { return nil })).To(MatchError(context.Canceled))
		})
	})

	Describe("Get", func() {
		It("reports missing records as ErrNotFound", func() {
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				_, err := tx.GetTask(99)
				Expect(store.IsNotFound(err)).To(BeTrue())
				err = tx.SaveTask(&entity.Task{ID: 99})
				Expect(store.IsNotFound(err)).To(BeTrue())
				return nil
			})).To(Succeed())
		})
	})

	Describe("unique constraints", func() {
		It("rejects a duplicate email regardless of case", func() {
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				if err := tx.SaveUser(&entity.User{Email: "a@corp.io"}); err != nil {
					return err
				}
				return tx.SaveUser(&entity.User{Email: "A@corp.io"})
			})
			Expect(errors.Is(err, store.ErrConflict)).To(BeTrue())
		})

		It("allows only one active assignment per project and user", func() {
			projectID, userID := seedProject()
			err := s.WithinTx(ctx, func(tx store.Tx) error {
				if err := tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, IsActive: false}); err != nil {
					return err
				}
				if err := tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, IsActive: true}); err != nil {
					return err
				}
				return tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, IsActive: true})
			})
			Expect(store.IsConflict(err)).To(BeTrue())
		})

		It("lets exactly one of many concurrent activations commit", func() {
			projectID, userID := seedProject()

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					err := s.WithinTx(ctx, func(tx store.Tx) error {
						return tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, IsActive: true})
					})
					if err == nil {
						mu.Lock()
						succeeded++
						mu.Unlock()
					} else {
						Expect(store.IsConflict(err)).To(BeTrue())
					}
				}()
			}
			wg.Wait()
			Expect(succeeded).To(Equal(1))
		})
	})

	Describe("filters", func() {
		It("lists projects by active membership", func() {
			projectID, userID := seedProject()
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				none, _ := tx.ListProjects(store.ProjectFilter{MemberID: userID})
				Expect(none).To(BeEmpty())
				if err := tx.SaveAssignment(&entity.Assignment{ProjectID: projectID, UserID: userID, IsActive: true}); err != nil {
					return err
				}
				some, _ := tx.ListProjects(store.ProjectFilter{MemberID: userID})
				Expect(some).To(HaveLen(1))
				return nil
			})).To(Succeed())
		})

		It("orders tasks by status order then id", func() {
			projectID, _ := seedProject()
			Expect(s.WithinTx(ctx, func(tx store.Tx) error {
				for _, st := range []entity.TaskStatus{entity.TaskDone, entity.TaskTodo, entity.TaskReview, entity.TaskTodo} {
					if err := tx.SaveTask(&entity.Task{ProjectID: projectID, Status: st, StatusOrder: st.Order()}); err != nil {
						return err
					}
				}
				tasks, err := tx.ListTasks(store.TaskFilter{ProjectID: projectID})
				Expect(err).NotTo(HaveOccurred())
				Expect(tasks).To(HaveLen(4))
				Expect(tasks[0].Status).To(Equal(entity.TaskTodo))
				Expect(tasks[1].Status).To(Equal(entity.TaskTodo))
				Expect(tasks[0].ID).To(BeNumerically("<", tasks[1].ID))
				Expect(tasks[2].Status).To(Equal(entity.TaskReview))
				Expect(tasks[3].Status).To(Equal(entity.TaskDone))
				return nil
			})).To(Succeed())
		})
	})
})
