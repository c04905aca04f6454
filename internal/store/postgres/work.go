package postgres

import (
	workDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/work"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

func (tx *transaction) GetProject(id int64) (*entity.Project, error) {
	var p workDatamodel.Project
	if err := tx.first(&p, id); err != nil {
		return nil, err
	}
	return entity.FromProjectDataModel(&p), nil
}

func (tx *transaction) ListProjects(filter store.ProjectFilter) ([]*entity.Project, error) {
	q := tx.db.Model(&workDatamodel.Project{})
	if filter.Code != "" {
		q = q.Where("code = ?", filter.Code)
	}
	if filter.TeamID != 0 {
		q = q.Where("team_id = ?", filter.TeamID)
	}
	if filter.ManagerID != 0 {
		q = q.Where("manager_id = ?", filter.ManagerID)
	}
	if filter.DepartmentID != 0 {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.MemberID != 0 {
		q = q.Where("id IN (?)", tx.db.Model(&workDatamodel.Assignment{}).
			Select("project_id").
			Where("user_id = ? AND is_active = ?", filter.MemberID, true))
	}

	var rows []workDatamodel.Project
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.Project, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromProjectDataModel(&rows[i]))
	}
	return out, nil
}

func (tx *transaction) SaveProject(p *entity.Project) error {
	dm := entity.ToProjectDataModel(p)
	if err := tx.save(dm, p.ID); err != nil {
		return err
	}
	p.ID = dm.ID
	return nil
}

func (tx *transaction) GetAssignment(id int64) (*entity.Assignment, error) {
	var a workDatamodel.Assignment
	if err := tx.first(&a, id); err != nil {
		return nil, err
	}
	return entity.FromAssignmentDataModel(&a), nil
}

func (tx *transaction) ListAssignments(filter store.AssignmentFilter) ([]*entity.Assignment, error) {
	q := tx.db.Model(&workDatamodel.Assignment{})
	if filter.ProjectID != 0 {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.ManagerID != 0 {
		q = q.Where("project_id IN (?)", tx.db.Model(&workDatamodel.Project{}).
			Select("id").
			Where("manager_id = ?", filter.ManagerID))
	}

	var rows []workDatamodel.Assignment
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.Assignment, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromAssignmentDataModel(&rows[i]))
	}
	return out, nil
}

// SaveAssignment relies on uq_assignments_active to reject a second active
// row for the same (project_id, user_id).
func (tx *transaction) SaveAssignment(a *entity.Assignment) error {
	dm := entity.ToAssignmentDataModel(a)
	if err := tx.save(dm, a.ID); err != nil {
		return err
	}
	a.ID = dm.ID
	return nil
}

func (tx *transaction) GetTask(id int64) (*entity.Task, error) {
	var t workDatamodel.Task
	if err := tx.first(&t, id); err != nil {
		return nil, err
	}
	return entity.FromTaskDataModel(&t), nil
}

func (tx *transaction) ListTasks(filter store.TaskFilter) ([]*entity.Task, error) {
	q := tx.db.Model(&workDatamodel.Task{})
	if filter.ProjectID != 0 {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.AssignedTo != 0 {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.ManagerID != 0 {
		q = q.Where("project_id IN (?)", tx.db.Model(&workDatamodel.Project{}).
			Select("id").
			Where("manager_id = ?", filter.ManagerID))
	}

	var rows []workDatamodel.Task
	if err := q.Order("status_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*entity.Task, 0, len(rows))
	for i := range rows {
		out = append(out, entity.FromTaskDataModel(&rows[i]))
	}
	return out, nil
}

func (tx *transaction) SaveTask(t *entity.Task) error {
	dm := entity.ToTaskDataModel(t)
	if err := tx.save(dm, t.ID); err != nil {
		return err
	}
	t.ID = dm.ID
	return nil
}
