package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// TaskRepository encapsulates incident task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.IncidentTask) error
	Update(ctx context.Context, task *domain.IncidentTask) error
	GetByID(ctx context.Context, id string) (*domain.IncidentTask, error)
	ListByIncident(ctx context.Context, incidentID string) ([]domain.IncidentTask, error)
	ListByAssignee(ctx context.Context, email string) ([]domain.IncidentTask, error)
	// ListOverdue returns non-Done tasks with a past due date and an assignee.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.IncidentTask, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, incident_id, step_order, title, department_id, sla_value, sla_unit, due_at, status, assigned_to, evidence, created_at, started_at, completed_at, last_status_change_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.IncidentTask) error {
	const query = `
        INSERT INTO incident_tasks (incident_id, step_order, title, department_id, sla_value, sla_unit, due_at, status, assigned_to, evidence)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		task.IncidentID,
		task.StepOrder,
		task.Title,
		task.DepartmentID,
		task.SLAValue,
		task.SLAUnit,
		task.DueAt,
		task.Status,
		task.AssignedTo,
		task.Evidence,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.IncidentTask) error {
	const query = `
        UPDATE incident_tasks SET title=$1, department_id=$2, sla_value=$3, sla_unit=$4, due_at=$5,
            status=$6, assigned_to=$7, evidence=$8, started_at=$9, completed_at=$10, last_status_change_at=$11
        WHERE id=$12`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		task.Title,
		task.DepartmentID,
		task.SLAValue,
		task.SLAUnit,
		task.DueAt,
		task.Status,
		task.AssignedTo,
		task.Evidence,
		task.StartedAt,
		task.CompletedAt,
		task.LastStatusChangeAt,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.IncidentTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM incident_tasks WHERE id=$1`
	var task domain.IncidentTask
	if err := scanTask(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.IncidentTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM incident_tasks WHERE incident_id=$1 ORDER BY step_order`
	return r.list(ctx, query, incidentID)
}

func (r *taskRepository) ListByAssignee(ctx context.Context, email string) ([]domain.IncidentTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM incident_tasks WHERE assigned_to=$1 ORDER BY due_at`
	return r.list(ctx, query, email)
}

func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.IncidentTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM incident_tasks
        WHERE status <> $1 AND due_at < $2 AND assigned_to IS NOT NULL ORDER BY due_at`
	return r.list(ctx, query, domain.TaskStatusDone, now)
}

func (r *taskRepository) list(ctx context.Context, query string, args ...any) ([]domain.IncidentTask, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IncidentTask
	for rows.Next() {
		var task domain.IncidentTask
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func scanTask(row pgx.Row, task *domain.IncidentTask) error {
	return row.Scan(
		&task.ID,
		&task.IncidentID,
		&task.StepOrder,
		&task.Title,
		&task.DepartmentID,
		&task.SLAValue,
		&task.SLAUnit,
		&task.DueAt,
		&task.Status,
		&task.AssignedTo,
		&task.Evidence,
		&task.CreatedAt,
		&task.StartedAt,
		&task.CompletedAt,
		&task.LastStatusChangeAt,
	)
}
