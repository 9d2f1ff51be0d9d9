package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/repository"
	apperrors "github.com/spec-kit/ops-console/pkg/util"
)

// PlaybookService owns the playbook entity and its copy-on-write versioning.
// A playbook referenced by any incident is immutable history: attempting to
// edit it forks a successor version instead.
type PlaybookService struct {
	playbooks  repository.PlaybookRepository
	steps      repository.StepRepository
	incidents  repository.IncidentRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PlaybookDependencies bundles repositories for the playbook service.
type PlaybookDependencies struct {
	PlaybookRepo repository.PlaybookRepository
	StepRepo     repository.StepRepository
	IncidentRepo repository.IncidentRepository
	Transactor   repository.Transactor
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// PlaybookCreateInput describes playbook creation payload.
type PlaybookCreateInput struct {
	Name         string
	IncidentType string
	Description  string
	Active       bool
}

// PlaybookUpdateInput describes detail edits (name, type, description).
type PlaybookUpdateInput struct {
	Name         *string
	IncidentType *string
	Description  *string
	Active       *bool
}

// EditableResult is the outcome of EnsureEditable. When Forked is true the
// playbook the caller selected was in use and Playbook is the freshly created
// successor; PreviousID carries the superseded id. Step identifiers obtained
// against PreviousID are invalid against the successor.
type EditableResult struct {
	Playbook   *domain.Playbook
	Forked     bool
	PreviousID string
}

// NewPlaybookService constructs the service.
func NewPlaybookService(deps PlaybookDependencies) *PlaybookService {
	return &PlaybookService{
		playbooks:  deps.PlaybookRepo,
		steps:      deps.StepRepo,
		incidents:  deps.IncidentRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create inserts a brand-new playbook lineage at version 1.
func (s *PlaybookService) Create(ctx context.Context, input PlaybookCreateInput) (*domain.Playbook, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || strings.TrimSpace(input.IncidentType) == "" {
		return nil, apperrors.NewValidationError("name and incident_type required", nil)
	}
	playbook := &domain.Playbook{
		Name:         name,
		IncidentType: strings.TrimSpace(input.IncidentType),
		Description:  strings.TrimSpace(input.Description),
		IsActive:     input.Active,
		Version:      1,
	}
	if err := s.playbooks.Create(ctx, playbook); err != nil {
		return nil, apperrors.MapError(err)
	}
	return playbook, nil
}

// UpdateDetails edits name/type/description/active. The edit is routed through
// EnsureEditable: when the selected version is in use, the change lands on the
// freshly forked successor, never on the historical version.
func (s *PlaybookService) UpdateDetails(ctx context.Context, playbookID string, input PlaybookUpdateInput) (*EditableResult, error) {
	result, err := s.EnsureEditable(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	playbook := result.Playbook
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		playbook.Name = strings.TrimSpace(*input.Name)
	}
	if input.IncidentType != nil && strings.TrimSpace(*input.IncidentType) != "" {
		playbook.IncidentType = strings.TrimSpace(*input.IncidentType)
	}
	if input.Description != nil {
		playbook.Description = strings.TrimSpace(*input.Description)
	}
	if input.Active != nil {
		playbook.IsActive = *input.Active
	}
	if err := s.playbooks.Update(ctx, playbook); err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// GetByID fetches a playbook.
func (s *PlaybookService) GetByID(ctx context.Context, playbookID string) (*domain.Playbook, error) {
	playbook, err := s.playbooks.GetByID(ctx, playbookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("playbook", map[string]any{"playbook_id": playbookID})
		}
		return nil, apperrors.MapError(err)
	}
	return playbook, nil
}

// List returns playbooks matching the filter.
func (s *PlaybookService) List(ctx context.Context, filter repository.PlaybookFilter) ([]domain.Playbook, error) {
	playbooks, err := s.playbooks.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return playbooks, nil
}

// IsPlaybookUsed reports whether any persisted incident references this exact
// playbook id. Point-in-time check; no locking between check and mutation
// (single-editor assumption).
func (s *PlaybookService) IsPlaybookUsed(ctx context.Context, playbookID string) (bool, error) {
	used, err := s.incidents.ExistsByPlaybook(ctx, playbookID)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return used, nil
}

// EnsureEditable is the gate every playbook mutation passes through. A
// never-referenced playbook is returned unchanged and may be edited in place.
// A playbook referenced by incidents is forked: the current version is
// deactivated, a successor with version+1 is created active, and all steps are
// cloned to it. Check, fork and clone run in one transaction so a failed clone
// never leaves a half-copied step set behind.
func (s *PlaybookService) EnsureEditable(ctx context.Context, playbookID string) (*EditableResult, error) {
	var result *EditableResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.playbooks.GetByID(ctx, playbookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("playbook", map[string]any{"playbook_id": playbookID})
			}
			return err
		}

		used, err := s.incidents.ExistsByPlaybook(ctx, playbookID)
		if err != nil {
			return err
		}
		if !used {
			result = &EditableResult{Playbook: current}
			return nil
		}

		current.IsActive = false
		if err := s.playbooks.Update(ctx, current); err != nil {
			return err
		}

		next := &domain.Playbook{
			Name:         current.Name,
			IncidentType: current.IncidentType,
			Description:  current.Description,
			IsActive:     true,
			Version:      current.Version + 1,
		}
		if err := s.playbooks.Create(ctx, next); err != nil {
			return err
		}
		if err := s.steps.CloneSteps(ctx, current.ID, next.ID); err != nil {
			return err
		}

		result = &EditableResult{Playbook: next, Forked: true, PreviousID: current.ID}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if result.Forked {
		s.logger.Info("playbook forked",
			zap.String("old_playbook_id", result.PreviousID),
			zap.String("new_playbook_id", result.Playbook.ID),
			zap.Int("new_version", result.Playbook.Version))
		s.publish(ctx, events.Event{
			Type: events.EventPlaybookForked,
			Payload: events.PlaybookForkedPayload{
				OldPlaybookID: result.PreviousID,
				NewPlaybookID: result.Playbook.ID,
				NewVersion:    result.Playbook.Version,
			},
		})
	}
	return result, nil
}

func (s *PlaybookService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
