package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// MemberRepository manages department membership persistence and leadership
// resolution.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.DepartmentMember) error
	Update(ctx context.Context, member *domain.DepartmentMember) error
	GetByID(ctx context.Context, id string) (*domain.DepartmentMember, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]domain.DepartmentMember, error)
	// LeaderForDepartment returns the active leader of the department, or nil
	// when none exists. When several active leaders exist the most recently
	// added one wins.
	LeaderForDepartment(ctx context.Context, departmentID string) (*domain.DepartmentMember, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository builds the repository.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberColumns = `id, department_id, user_email, role, active, created_at, updated_at`

func (r *memberRepository) Create(ctx context.Context, member *domain.DepartmentMember) error {
	const query = `
        INSERT INTO department_members (department_id, user_email, role, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		member.DepartmentID,
		member.UserEmail,
		member.Role,
		member.Active,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
}

func (r *memberRepository) Update(ctx context.Context, member *domain.DepartmentMember) error {
	const query = `
        UPDATE department_members SET department_id=$1, user_email=$2, role=$3, active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		member.DepartmentID,
		member.UserEmail,
		member.Role,
		member.Active,
		member.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.DepartmentMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM department_members WHERE id=$1`
	var member domain.DepartmentMember
	if err := scanMember(querierFrom(ctx, r.pool).QueryRow(ctx, query, id), &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) ListByDepartment(ctx context.Context, departmentID string) ([]domain.DepartmentMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM department_members WHERE department_id=$1 ORDER BY created_at`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DepartmentMember
	for rows.Next() {
		var member domain.DepartmentMember
		if err := scanMember(rows, &member); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *memberRepository) LeaderForDepartment(ctx context.Context, departmentID string) (*domain.DepartmentMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM department_members
        WHERE department_id=$1 AND role=$2 AND active=TRUE
        ORDER BY created_at DESC LIMIT 1`
	var member domain.DepartmentMember
	err := scanMember(querierFrom(ctx, r.pool).QueryRow(ctx, query, departmentID, domain.MemberRoleLeader), &member)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func scanMember(row pgx.Row, member *domain.DepartmentMember) error {
	return row.Scan(
		&member.ID,
		&member.DepartmentID,
		&member.UserEmail,
		&member.Role,
		&member.Active,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
}
