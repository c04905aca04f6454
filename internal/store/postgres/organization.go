package postgres

import (
	orgDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/user"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

func (tx *transaction) GetUser(id int64) (*entity.User, error) {
	var u userDatamodel.User
	if err := tx.first(&u, id); err != nil {
		return nil, err
	}
	return entity.FromUserDataModel(&u), nil
}

func (tx *transaction) ListUsers(filter store.UserFilter) ([]*entity.User, error) {
	q := tx.db.Model(&userDatamodel.User{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.Email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	}
	if filter.TeamID != 0 {
		q = q.Where("team_id = ?", filter.TeamID)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var rows []userDatamodel.User
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.User, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromUserDataModel(&rows[i]))
	}
	return out, nil
}

func (tx *transaction) SaveUser(u *entity.User) error {
	dm := entity.ToUserDataModel(u)
	if err := tx.save(dm, u.ID); err != nil {
		return err
	}
	u.ID = dm.ID
	return nil
}

func (tx *transaction) DeleteUser(id int64) error {
	result := tx.db.Where("id = ?", id).Delete(&userDatamodel.User{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) GetDepartment(id int64) (*entity.Department, error) {
	var d orgDatamodel.Department
	if err := tx.first(&d, id); err != nil {
		return nil, err
	}
	return entity.FromDepartmentDataModel(&d), nil
}

func (tx *transaction) ListDepartments(filter store.DepartmentFilter) ([]*entity.Department, error) {
	q := tx.db.Model(&orgDatamodel.Department{})
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	if filter.Code != "" {
		q = q.Where("code = ?", filter.Code)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var rows []orgDatamodel.Department
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.Department, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromDepartmentDataModel(&rows[i]))
	}
	return out, nil
}

func (tx *transaction) SaveDepartment(d *entity.Department) error {
	dm := entity.ToDepartmentDataModel(d)
	if err := tx.save(dm, d.ID); err != nil {
		return err
	}
	d.ID = dm.ID
	return nil
}

func (tx *transaction) GetTeam(id int64) (*entity.Team, error) {
	var t orgDatamodel.Team
	if err := tx.first(&t, id); err != nil {
		return nil, err
	}
	return entity.FromTeamDataModel(&t), nil
}

func (tx *transaction) ListTeams(filter store.TeamFilter) ([]*entity.Team, error) {
	q := tx.db.Model(&orgDatamodel.Team{})
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	if filter.Code != "" {
		q = q.Where("code = ?", filter.Code)
	}
	if filter.DepartmentID != 0 {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.ManagerID != 0 {
		q = q.Where("manager_id = ?", filter.ManagerID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var rows []orgDatamodel.Team
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.Team, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromTeamDataModel(&rows[i]))
	}
	return out, nil
}

func (tx *transaction) SaveTeam(t *entity.Team) error {
	dm := entity.ToTeamDataModel(t)
	if err := tx.save(dm, t.ID); err != nil {
		return err
	}
	t.ID = dm.ID
	return nil
}
