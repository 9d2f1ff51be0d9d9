package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// IncidentFilter captures incident listing parameters.
type IncidentFilter struct {
	Statuses     []domain.IncidentStatus
	IncidentType *string
	PlaybookID   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	SearchTerm   *string
	Limit        int
	Offset       int
}

// IncidentRepository encapsulates incident persistence. ExistsByPlaybook is
// the incident usage oracle: it answers whether any incident ever referenced
// the given playbook id.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	Update(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	ListWithFilter(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	ExistsByPlaybook(ctx context.Context, playbookID string) (bool, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, title, description, status, incident_type, playbook_id, context, impact, created_by, created_at, updated_at, closed_at`

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	contextJSON, err := marshalContext(incident.Context)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO incidents (title, description, status, incident_type, playbook_id, context, impact, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.IncidentType,
		incident.PlaybookID,
		contextJSON,
		incident.Impact,
		incident.CreatedBy,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
}

func (r *incidentRepository) Update(ctx context.Context, incident *domain.Incident) error {
	contextJSON, err := marshalContext(incident.Context)
	if err != nil {
		return err
	}
	const query = `
        UPDATE incidents SET title=$1, description=$2, status=$3, incident_type=$4, playbook_id=$5,
            context=$6, impact=$7, closed_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.IncidentType,
		incident.PlaybookID,
		contextJSON,
		incident.Impact,
		incident.ClosedAt,
		incident.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1`
	var incident domain.Incident
	if err := scanIncident(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *incidentRepository) ListWithFilter(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	base := `SELECT ` + incidentColumns + ` FROM incidents`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.IncidentType != nil {
		args = append(args, *filter.IncidentType)
		clauses = append(clauses, fmt.Sprintf("incident_type=$%d", len(args)))
	}
	if filter.PlaybookID != nil {
		args = append(args, *filter.PlaybookID)
		clauses = append(clauses, fmt.Sprintf("playbook_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := scanIncident(rows, &incident); err != nil {
			return nil, err
		}
		result = append(result, incident)
	}
	return result, rows.Err()
}

func (r *incidentRepository) ExistsByPlaybook(ctx context.Context, playbookID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM incidents WHERE playbook_id=$1)`
	var exists bool
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, playbookID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanIncident(row pgx.Row, incident *domain.Incident) error {
	var contextJSON []byte
	if err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.IncidentType,
		&incident.PlaybookID,
		&contextJSON,
		&incident.Impact,
		&incident.CreatedBy,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ClosedAt,
	); err != nil {
		return err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &incident.Context); err != nil {
			return err
		}
	}
	return nil
}

func marshalContext(context map[string]any) ([]byte, error) {
	if context == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(context)
}
