// Package postgres implements the entity store on top of GORM. It is used
// with the postgres driver in production and with sqlite in tests.
package postgres

import (
	"context"
	"errors"
	"strings"

	orgDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/user"
	workDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/work"
	"github.com/frahmantamala/workforce-management/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the schema from the data models. Production databases
// are migrated with goose; this serves sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&orgDatamodel.Department{},
		&orgDatamodel.Team{},
		&userDatamodel.User{},
		&workDatamodel.Project{},
		&workDatamodel.Assignment{},
		&workDatamodel.Task{},
	)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&transaction{db: gtx})
	})
}

type transaction struct {
	db *gorm.DB
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrConflict
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrConflict
	}
	return err
}

func (tx *transaction) first(dest interface{}, id int64) error {
	return translate(tx.db.Where("id = ?", id).First(dest).Error)
}

// save inserts when id is zero, otherwise overwrites every column of the row.
func (tx *transaction) save(model interface{}, id int64) error {
	if id == 0 {
		return translate(tx.db.Create(model).Error)
	}
	result := tx.db.Model(model).Where("id = ?", id).Select("*").Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
