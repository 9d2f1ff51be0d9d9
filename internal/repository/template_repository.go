package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// TemplateRepository manages task template persistence.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.TaskTemplate) error
	Update(ctx context.Context, tmpl *domain.TaskTemplate) error
	GetByID(ctx context.Context, id string) (*domain.TaskTemplate, error)
	List(ctx context.Context) ([]domain.TaskTemplate, error)
	ListActive(ctx context.Context) ([]domain.TaskTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository builds the repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, title, description, default_department_id, default_sla_value, default_sla_unit, is_active, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tmpl *domain.TaskTemplate) error {
	const query = `
        INSERT INTO task_templates (title, description, default_department_id, default_sla_value, default_sla_unit, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		tmpl.Title,
		tmpl.Description,
		tmpl.DefaultDepartmentID,
		tmpl.DefaultSLAValue,
		tmpl.DefaultSLAUnit,
		tmpl.IsActive,
	).Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
}

func (r *templateRepository) Update(ctx context.Context, tmpl *domain.TaskTemplate) error {
	const query = `
        UPDATE task_templates SET title=$1, description=$2, default_department_id=$3,
            default_sla_value=$4, default_sla_unit=$5, is_active=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		tmpl.Title,
		tmpl.Description,
		tmpl.DefaultDepartmentID,
		tmpl.DefaultSLAValue,
		tmpl.DefaultSLAUnit,
		tmpl.IsActive,
		tmpl.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.TaskTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM task_templates WHERE id=$1`
	var tmpl domain.TaskTemplate
	if err := scanTemplate(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]domain.TaskTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM task_templates ORDER BY title`
	return r.list(ctx, query)
}

func (r *templateRepository) ListActive(ctx context.Context) ([]domain.TaskTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM task_templates WHERE is_active = TRUE ORDER BY title`
	return r.list(ctx, query)
}

func (r *templateRepository) list(ctx context.Context, query string) ([]domain.TaskTemplate, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskTemplate
	for rows.Next() {
		var tmpl domain.TaskTemplate
		if err := scanTemplate(rows, &tmpl); err != nil {
			return nil, err
		}
		result = append(result, tmpl)
	}
	return result, rows.Err()
}

func scanTemplate(row pgx.Row, tmpl *domain.TaskTemplate) error {
	return row.Scan(
		&tmpl.ID,
		&tmpl.Title,
		&tmpl.Description,
		&tmpl.DefaultDepartmentID,
		&tmpl.DefaultSLAValue,
		&tmpl.DefaultSLAUnit,
		&tmpl.IsActive,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
}
