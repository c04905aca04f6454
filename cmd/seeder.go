package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/engine"
	"github.com/frahmantamala/workforce-management/internal/store"
	"github.com/frahmantamala/workforce-management/internal/store/postgres"
	"github.com/frahmantamala/workforce-management/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const seedAdminEmail = "admin@workforce.local"

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a sample organization",
	Long: `Create an administrator directly, then build a department, a team with
its manager, employees, a project, assignments and tasks through the engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		gdb, _, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		if cfg.Database.IsSQLite() {
			if err := postgres.AutoMigrate(gdb); err != nil {
				return err
			}
		}

		s := postgres.NewStore(gdb)
		eng := engine.New(s, nil, logger.L())
		return seed(cmd.Context(), s, eng, seedPassword)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "password given to every seeded user")
}

func seed(ctx context.Context, s store.Store, eng engine.EvaluatorAPI, password string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var admin *entity.User
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		existing, err := tx.ListUsers(store.UserFilter{Email: seedAdminEmail})
		if err != nil || len(existing) > 0 {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin = &entity.User{
			Email:        seedAdminEmail,
			Name:         "Administrator",
			PasswordHash: string(hash),
			Role:         role.Admin,
			IsActive:     true,
		}
		return tx.SaveUser(admin)
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if admin == nil {
		fmt.Println("admin user already exists; nothing to seed")
		return nil
	}
	fmt.Println("Seeded admin user:", seedAdminEmail)

	as := authz.PrincipalOf(admin)
	create := func(kind entity.Type, ch entity.Changes) (any, error) {
		res, err := eng.Evaluate(ctx, as, engine.Intent{Operation: entity.OpCreate, Entity: kind, Changes: ch})
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", kind, err)
		}
		return res.Record, nil
	}

	rec, err := create(entity.TypeDepartment, &entity.DepartmentChanges{
		Name: entity.Ptr("Engineering"),
		Code: entity.Ptr("ENG"),
	})
	if err != nil {
		return err
	}
	dept := rec.(*entity.Department)

	rec, err = create(entity.TypeUser, &entity.UserChanges{
		Email:        entity.Ptr("manager@workforce.local"),
		Name:         entity.Ptr("Maya Manager"),
		Password:     entity.Ptr(password),
		Role:         entity.Ptr(role.Manager),
		DepartmentID: entity.Ptr(dept.ID),
	})
	if err != nil {
		return err
	}
	manager := rec.(*entity.User)

	rec, err = create(entity.TypeTeam, &entity.TeamChanges{
		Name:         entity.Ptr("Platform"),
		Code:         entity.Ptr("PLT"),
		DepartmentID: entity.Ptr(dept.ID),
		ManagerID:    entity.Ptr(manager.ID),
	})
	if err != nil {
		return err
	}
	team := rec.(*entity.Team)

	var employees []*entity.User
	for _, name := range []string{"Eli", "Noor"} {
		rec, err = create(entity.TypeUser, &entity.UserChanges{
			Email:    entity.Ptr(fmt.Sprintf("%s@workforce.local", strings.ToLower(name))),
			Name:     entity.Ptr(name),
			Password: entity.Ptr(password),
			TeamID:   entity.Ptr(team.ID),
		})
		if err != nil {
			return err
		}
		employees = append(employees, rec.(*entity.User))
	}

	rec, err = create(entity.TypeProject, &entity.ProjectChanges{
		Name:      entity.Ptr("Billing Revamp"),
		Code:      entity.Ptr("BIL"),
		TeamID:    entity.Ptr(team.ID),
		Status:    entity.Ptr(entity.ProjectActive),
		StartDate: entity.Ptr(time.Now().UTC().Truncate(24 * time.Hour)),
	})
	if err != nil {
		return err
	}
	project := rec.(*entity.Project)

	for i, e := range employees {
		assignmentRole := entity.AssignmentEngineer
		if i == 0 {
			assignmentRole = entity.AssignmentTeamLead
		}
		if _, err := create(entity.TypeAssignment, &entity.AssignmentChanges{
			ProjectID: entity.Ptr(project.ID),
			UserID:    entity.Ptr(e.ID),
			Role:      entity.Ptr(assignmentRole),
		}); err != nil {
			return err
		}
	}

	for i, title := range []string{"Design invoice schema", "Migrate ledger", "Write runbook"} {
		if _, err := create(entity.TypeTask, &entity.TaskChanges{
			ProjectID:  entity.Ptr(project.ID),
			Title:      entity.Ptr(title),
			AssignedTo: entity.Ptr(employees[i%len(employees)].ID),
		}); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded department %s, team %s managed by %s, project %s with %d members\n",
		dept.Code, team.Code, manager.Email, project.Code, len(employees))
	return nil
}
