package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
)

func TestIncidentListWithFilterCreatedWindow(t *testing.T) {
	repo := NewIncidentRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		incident := &domain.Incident{
			Title:        fmt.Sprintf("incident %d", i),
			Status:       domain.IncidentStatusOpen,
			IncidentType: "outage",
			Impact:       domain.IncidentImpactMedium,
			CreatedBy:    "ops@example.com",
		}
		require.NoError(t, repo.Create(ctx, incident))
		incident.CreatedAt = base.AddDate(0, 0, i)
		require.NoError(t, repo.Update(ctx, incident))
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 1)
	result, err := repo.ListWithFilter(ctx, repository.IncidentFilter{
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "incident 1", result[0].Title)

	result, err = repo.ListWithFilter(ctx, repository.IncidentFilter{CreatedFrom: &from})
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestIncidentListWithFilterPagination(t *testing.T) {
	repo := NewIncidentRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		incident := &domain.Incident{
			Title:        fmt.Sprintf("incident %d", i),
			Status:       domain.IncidentStatusOpen,
			IncidentType: "outage",
			Impact:       domain.IncidentImpactMedium,
			CreatedBy:    "ops@example.com",
		}
		require.NoError(t, repo.Create(ctx, incident))
	}

	page, err := repo.ListWithFilter(ctx, repository.IncidentFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.ListWithFilter(ctx, repository.IncidentFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	beyond, err := repo.ListWithFilter(ctx, repository.IncidentFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestPlaybookListWithFilterPagination(t *testing.T) {
	repo := NewPlaybookRepository()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		playbook := &domain.Playbook{
			Name:         fmt.Sprintf("playbook %d", i),
			IncidentType: "outage",
			IsActive:     true,
			Version:      1,
		}
		require.NoError(t, repo.Create(ctx, playbook))
	}

	page, err := repo.ListWithFilter(ctx, repository.PlaybookFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "playbook 0", page[0].Name, "name-sorted before the window applies")

	rest, err := repo.ListWithFilter(ctx, repository.PlaybookFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
