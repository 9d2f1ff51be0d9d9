package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// PlaybookFilter captures playbook listing parameters.
type PlaybookFilter struct {
	IncidentType *string
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// PlaybookRepository encapsulates playbook persistence.
type PlaybookRepository interface {
	Create(ctx context.Context, playbook *domain.Playbook) error
	Update(ctx context.Context, playbook *domain.Playbook) error
	GetByID(ctx context.Context, id string) (*domain.Playbook, error)
	ListWithFilter(ctx context.Context, filter PlaybookFilter) ([]domain.Playbook, error)
}

type playbookRepository struct {
	pool *pgxpool.Pool
}

// NewPlaybookRepository instantiates repository.
func NewPlaybookRepository(pool *pgxpool.Pool) PlaybookRepository {
	return &playbookRepository{pool: pool}
}

const playbookColumns = `id, name, incident_type, description, is_active, version, created_at, updated_at`

func (r *playbookRepository) Create(ctx context.Context, playbook *domain.Playbook) error {
	const query = `
        INSERT INTO playbooks (name, incident_type, description, is_active, version)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		playbook.Name,
		playbook.IncidentType,
		playbook.Description,
		playbook.IsActive,
		playbook.Version,
	).Scan(&playbook.ID, &playbook.CreatedAt, &playbook.UpdatedAt)
}

func (r *playbookRepository) Update(ctx context.Context, playbook *domain.Playbook) error {
	const query = `
        UPDATE playbooks SET name=$1, incident_type=$2, description=$3, is_active=$4, version=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		playbook.Name,
		playbook.IncidentType,
		playbook.Description,
		playbook.IsActive,
		playbook.Version,
		playbook.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *playbookRepository) GetByID(ctx context.Context, id string) (*domain.Playbook, error) {
	const query = `SELECT ` + playbookColumns + ` FROM playbooks WHERE id=$1`
	var playbook domain.Playbook
	if err := scanPlaybook(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &playbook); err != nil {
		return nil, err
	}
	return &playbook, nil
}

func (r *playbookRepository) ListWithFilter(ctx context.Context, filter PlaybookFilter) ([]domain.Playbook, error) {
	base := `SELECT ` + playbookColumns + ` FROM playbooks`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.IncidentType != nil {
		args = append(args, *filter.IncidentType)
		clauses = append(clauses, fmt.Sprintf("incident_type=$%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active=TRUE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY name, version DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Playbook
	for rows.Next() {
		var playbook domain.Playbook
		if err := scanPlaybook(rows, &playbook); err != nil {
			return nil, err
		}
		result = append(result, playbook)
	}
	return result, rows.Err()
}

func scanPlaybook(row pgx.Row, playbook *domain.Playbook) error {
	return row.Scan(
		&playbook.ID,
		&playbook.Name,
		&playbook.IncidentType,
		&playbook.Description,
		&playbook.IsActive,
		&playbook.Version,
		&playbook.CreatedAt,
		&playbook.UpdatedAt,
	)
}
