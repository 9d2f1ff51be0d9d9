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

// allowedIncidentTransitions defines the incident lifecycle. Resolved may be
// reopened back to InProgress; Closed is terminal.
var allowedIncidentTransitions = map[domain.IncidentStatus][]domain.IncidentStatus{
	domain.IncidentStatusOpen:       {domain.IncidentStatusInProgress, domain.IncidentStatusResolved},
	domain.IncidentStatusInProgress: {domain.IncidentStatusResolved},
	domain.IncidentStatusResolved:   {domain.IncidentStatusClosed, domain.IncidentStatusInProgress},
	domain.IncidentStatusClosed:     {},
}

// IncidentService manages incidents and drives task generation when an
// incident is opened against a playbook.
type IncidentService struct {
	incidents  repository.IncidentRepository
	playbooks  repository.PlaybookRepository
	taskgen    *TaskGenerationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	IncidentRepo   repository.IncidentRepository
	PlaybookRepo   repository.PlaybookRepository
	TaskGeneration *TaskGenerationService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// IncidentCreateInput is the payload for opening an incident.
type IncidentCreateInput struct {
	Title        string
	Description  string
	IncidentType string
	PlaybookID   *string
	Context      map[string]any
	Impact       domain.IncidentImpact
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	return &IncidentService{
		incidents:  deps.IncidentRepo,
		playbooks:  deps.PlaybookRepo,
		taskgen:    deps.TaskGeneration,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create opens an incident. When a playbook is attached its id is pinned on
// the incident (freezing that exact version) and the playbook is expanded
// into tasks. Task generation failures surface to the caller but already
// created tasks and the incident itself are kept.
func (s *IncidentService) Create(ctx context.Context, createdBy string, input IncidentCreateInput) (*domain.Incident, []domain.IncidentTask, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.IncidentType) == "" {
		return nil, nil, apperrors.NewValidationError("title and incident_type required", nil)
	}
	impact := input.Impact
	if impact == "" {
		impact = domain.IncidentImpactMedium
	}

	if input.PlaybookID != nil {
		playbook, err := s.playbooks.GetByID(ctx, *input.PlaybookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewNotFound("playbook", map[string]any{"playbook_id": *input.PlaybookID})
			}
			return nil, nil, apperrors.MapError(err)
		}
		if !playbook.IsActive {
			return nil, nil, apperrors.NewValidationError("playbook version is not active", map[string]any{
				"playbook_id": playbook.ID,
				"version":     playbook.Version,
			})
		}
	}

	incident := &domain.Incident{
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.IncidentStatusOpen,
		IncidentType: strings.TrimSpace(input.IncidentType),
		PlaybookID:   input.PlaybookID,
		Context:      input.Context,
		Impact:       impact,
		CreatedBy:    createdBy,
	}
	if err := s.incidents.Create(ctx, incident); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.publish(ctx, createdBy, events.Event{
		Type: events.EventIncidentCreated,
		Payload: events.IncidentCreatedPayload{
			IncidentID:   incident.ID,
			IncidentType: incident.IncidentType,
			PlaybookID:   incident.PlaybookID,
			Title:        incident.Title,
		},
	})

	var tasks []domain.IncidentTask
	if incident.PlaybookID != nil {
		var err error
		tasks, err = s.taskgen.GenerateFromPlaybook(ctx, incident.ID, *incident.PlaybookID)
		if err != nil {
			s.logger.Error("task generation failed",
				zap.String("incident_id", incident.ID),
				zap.String("playbook_id", *incident.PlaybookID),
				zap.Error(err))
			return incident, tasks, err
		}
	}
	return incident, tasks, nil
}

// GetByID fetches an incident.
func (s *IncidentService) GetByID(ctx context.Context, incidentID string) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return nil, apperrors.MapError(err)
	}
	return incident, nil
}

// List returns incidents matching the filter.
func (s *IncidentService) List(ctx context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	incidents, err := s.incidents.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return incidents, nil
}

// UpdateStatus applies a lifecycle transition. Closing stamps ClosedAt;
// reopening a resolved incident clears it.
func (s *IncidentService) UpdateStatus(ctx context.Context, incidentID string, newStatus domain.IncidentStatus) (*domain.Incident, error) {
	incident, err := s.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(incident.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition("incident status transition not allowed", map[string]any{
			"incident_id": incidentID,
			"from":        incident.Status,
			"to":          newStatus,
		})
	}

	incident.Status = newStatus
	switch newStatus {
	case domain.IncidentStatusClosed:
		now := time.Now()
		incident.ClosedAt = &now
	case domain.IncidentStatusInProgress:
		incident.ClosedAt = nil
	}
	if err := s.incidents.Update(ctx, incident); err != nil {
		return nil, apperrors.MapError(err)
	}
	return incident, nil
}

func transitionAllowed(from, to domain.IncidentStatus) bool {
	for _, allowed := range allowedIncidentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *IncidentService) publish(ctx context.Context, actorEmail string, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ActorEmail = actorEmail
	_ = s.dispatcher.Publish(ctx, event)
}
