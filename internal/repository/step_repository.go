package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// StepRepository encapsulates playbook step persistence. ListByPlaybook always
// returns steps sorted by step_order ascending.
type StepRepository interface {
	Create(ctx context.Context, step *domain.PlaybookStep) error
	GetByID(ctx context.Context, id string) (*domain.PlaybookStep, error)
	ListByPlaybook(ctx context.Context, playbookID string) ([]domain.PlaybookStep, error)
	CountByPlaybook(ctx context.Context, playbookID string) (int, error)
	Delete(ctx context.Context, id string) error
	SetOrder(ctx context.Context, id string, order int) error
	// CloneSteps copies every step of the source playbook to the target with
	// fresh ids but identical step_order, template reference and overrides.
	CloneSteps(ctx context.Context, fromPlaybookID, toPlaybookID string) error
}

type stepRepository struct {
	pool *pgxpool.Pool
}

// NewStepRepository instantiates repository.
func NewStepRepository(pool *pgxpool.Pool) StepRepository {
	return &stepRepository{pool: pool}
}

const stepColumns = `id, playbook_id, step_order, task_template_id, override_title, override_department_id, override_sla_value, override_sla_unit, active, created_at, updated_at`

func (r *stepRepository) Create(ctx context.Context, step *domain.PlaybookStep) error {
	const query = `
        INSERT INTO playbook_steps (playbook_id, step_order, task_template_id, override_title, override_department_id, override_sla_value, override_sla_unit, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		step.PlaybookID,
		step.StepOrder,
		step.TaskTemplateID,
		step.OverrideTitle,
		step.OverrideDepartmentID,
		step.OverrideSLAValue,
		step.OverrideSLAUnit,
		step.Active,
	).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
}

func (r *stepRepository) GetByID(ctx context.Context, id string) (*domain.PlaybookStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM playbook_steps WHERE id=$1`
	var step domain.PlaybookStep
	if err := scanStep(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &step); err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *stepRepository) ListByPlaybook(ctx context.Context, playbookID string) ([]domain.PlaybookStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM playbook_steps WHERE playbook_id=$1 ORDER BY step_order`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, playbookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PlaybookStep
	for rows.Next() {
		var step domain.PlaybookStep
		if err := scanStep(rows, &step); err != nil {
			return nil, err
		}
		result = append(result, step)
	}
	return result, rows.Err()
}

func (r *stepRepository) CountByPlaybook(ctx context.Context, playbookID string) (int, error) {
	const query = `SELECT COUNT(*) FROM playbook_steps WHERE playbook_id=$1`
	var count int
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, playbookID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *stepRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM playbook_steps WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *stepRepository) SetOrder(ctx context.Context, id string, order int) error {
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx,
		`UPDATE playbook_steps SET step_order=$1, updated_at=NOW() WHERE id=$2`, order, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *stepRepository) CloneSteps(ctx context.Context, fromPlaybookID, toPlaybookID string) error {
	const query = `
        INSERT INTO playbook_steps (playbook_id, step_order, task_template_id, override_title, override_department_id, override_sla_value, override_sla_unit, active)
        SELECT $2, step_order, task_template_id, override_title, override_department_id, override_sla_value, override_sla_unit, active
        FROM playbook_steps WHERE playbook_id=$1`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, fromPlaybookID, toPlaybookID)
	return err
}

func scanStep(row pgx.Row, step *domain.PlaybookStep) error {
	return row.Scan(
		&step.ID,
		&step.PlaybookID,
		&step.StepOrder,
		&step.TaskTemplateID,
		&step.OverrideTitle,
		&step.OverrideDepartmentID,
		&step.OverrideSLAValue,
		&step.OverrideSLAUnit,
		&step.Active,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
}
