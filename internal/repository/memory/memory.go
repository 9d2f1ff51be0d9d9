// Package memory provides in-memory implementations of the repository
// interfaces. The core services only ever talk to storage through those
// interfaces, so tests exercise the full logic against these doubles without
// a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-console/internal/domain"
	"github.com/spec-kit/ops-console/internal/repository"
)

// Transactor satisfies repository.Transactor without transactional semantics;
// single-writer tests do not need rollback.
type Transactor struct{}

// NewTransactor builds the no-op transactor.
func NewTransactor() repository.Transactor {
	return Transactor{}
}

// WithinTx runs fn directly.
func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newID() string {
	return uuid.NewString()
}

// DepartmentRepository is an in-memory repository.DepartmentRepository.
type DepartmentRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Department
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{items: make(map[string]domain.Department)}
}

func (r *DepartmentRepository) Create(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept.ID = newID()
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	r.items[dept.ID] = *dept
	return nil
}

func (r *DepartmentRepository) Update(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = time.Now()
	r.items[dept.ID] = *dept
	return nil
}

func (r *DepartmentRepository) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dept, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &dept, nil
}

func (r *DepartmentRepository) List(_ context.Context) ([]domain.Department, error) {
	return r.filtered(func(domain.Department) bool { return true }), nil
}

func (r *DepartmentRepository) ListActive(_ context.Context) ([]domain.Department, error) {
	return r.filtered(func(d domain.Department) bool { return d.IsActive }), nil
}

func (r *DepartmentRepository) filtered(keep func(domain.Department) bool) []domain.Department {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Department
	for _, dept := range r.items {
		if keep(dept) {
			result = append(result, dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TemplateRepository is an in-memory repository.TemplateRepository.
type TemplateRepository struct {
	mu    sync.RWMutex
	items map[string]domain.TaskTemplate
}

// NewTemplateRepository builds the repository.
func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{items: make(map[string]domain.TaskTemplate)}
}

func (r *TemplateRepository) Create(_ context.Context, tmpl *domain.TaskTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmpl.ID = newID()
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = tmpl.CreatedAt
	r.items[tmpl.ID] = *tmpl
	return nil
}

func (r *TemplateRepository) Update(_ context.Context, tmpl *domain.TaskTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tmpl.ID]; !ok {
		return pgx.ErrNoRows
	}
	tmpl.UpdatedAt = time.Now()
	r.items[tmpl.ID] = *tmpl
	return nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*domain.TaskTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tmpl, nil
}

func (r *TemplateRepository) List(_ context.Context) ([]domain.TaskTemplate, error) {
	return r.filtered(func(domain.TaskTemplate) bool { return true }), nil
}

func (r *TemplateRepository) ListActive(_ context.Context) ([]domain.TaskTemplate, error) {
	return r.filtered(func(t domain.TaskTemplate) bool { return t.IsActive }), nil
}

// Delete removes a template outright. The SQL layer has no such operation;
// tests use it to simulate a dangling template reference.
func (r *TemplateRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *TemplateRepository) filtered(keep func(domain.TaskTemplate) bool) []domain.TaskTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.TaskTemplate
	for _, tmpl := range r.items {
		if keep(tmpl) {
			result = append(result, tmpl)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}

// MemberRepository is an in-memory repository.MemberRepository.
type MemberRepository struct {
	mu    sync.RWMutex
	items map[string]domain.DepartmentMember
	seq   map[string]int
	next  int
}

// NewMemberRepository builds the repository.
func NewMemberRepository() *MemberRepository {
	return &MemberRepository{
		items: make(map[string]domain.DepartmentMember),
		seq:   make(map[string]int),
	}
}

func (r *MemberRepository) Create(_ context.Context, member *domain.DepartmentMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member.ID = newID()
	member.CreatedAt = time.Now()
	member.UpdatedAt = member.CreatedAt
	r.next++
	r.seq[member.ID] = r.next
	r.items[member.ID] = *member
	return nil
}

func (r *MemberRepository) Update(_ context.Context, member *domain.DepartmentMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[member.ID]; !ok {
		return pgx.ErrNoRows
	}
	member.UpdatedAt = time.Now()
	r.items[member.ID] = *member
	return nil
}

func (r *MemberRepository) GetByID(_ context.Context, id string) (*domain.DepartmentMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	member, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &member, nil
}

func (r *MemberRepository) ListByDepartment(_ context.Context, departmentID string) ([]domain.DepartmentMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DepartmentMember
	for _, member := range r.items {
		if member.DepartmentID == departmentID {
			result = append(result, member)
		}
	}
	sort.Slice(result, func(i, j int) bool { return r.seq[result[i].ID] < r.seq[result[j].ID] })
	return result, nil
}

func (r *MemberRepository) LeaderForDepartment(_ context.Context, departmentID string) (*domain.DepartmentMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var leader *domain.DepartmentMember
	leaderSeq := -1
	for id, member := range r.items {
		if member.DepartmentID != departmentID || member.Role != domain.MemberRoleLeader || !member.Active {
			continue
		}
		if r.seq[id] > leaderSeq {
			m := member
			leader = &m
			leaderSeq = r.seq[id]
		}
	}
	return leader, nil
}

// PlaybookRepository is an in-memory repository.PlaybookRepository.
type PlaybookRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Playbook
}

// NewPlaybookRepository builds the repository.
func NewPlaybookRepository() *PlaybookRepository {
	return &PlaybookRepository{items: make(map[string]domain.Playbook)}
}

func (r *PlaybookRepository) Create(_ context.Context, playbook *domain.Playbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playbook.ID = newID()
	playbook.CreatedAt = time.Now()
	playbook.UpdatedAt = playbook.CreatedAt
	r.items[playbook.ID] = *playbook
	return nil
}

func (r *PlaybookRepository) Update(_ context.Context, playbook *domain.Playbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[playbook.ID]; !ok {
		return pgx.ErrNoRows
	}
	playbook.UpdatedAt = time.Now()
	r.items[playbook.ID] = *playbook
	return nil
}

func (r *PlaybookRepository) GetByID(_ context.Context, id string) (*domain.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	playbook, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &playbook, nil
}

func (r *PlaybookRepository) ListWithFilter(_ context.Context, filter repository.PlaybookFilter) ([]domain.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Playbook
	for _, playbook := range r.items {
		if filter.IncidentType != nil && playbook.IncidentType != *filter.IncidentType {
			continue
		}
		if filter.ActiveOnly && !playbook.IsActive {
			continue
		}
		result = append(result, playbook)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Version > result[j].Version
	})
	return paginate(result, filter.Limit, filter.Offset, 50), nil
}

// StepRepository is an in-memory repository.StepRepository.
type StepRepository struct {
	mu    sync.RWMutex
	items map[string]domain.PlaybookStep
}

// NewStepRepository builds the repository.
func NewStepRepository() *StepRepository {
	return &StepRepository{items: make(map[string]domain.PlaybookStep)}
}

func (r *StepRepository) Create(_ context.Context, step *domain.PlaybookStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.ID = newID()
	step.CreatedAt = time.Now()
	step.UpdatedAt = step.CreatedAt
	r.items[step.ID] = *step
	return nil
}

func (r *StepRepository) GetByID(_ context.Context, id string) (*domain.PlaybookStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &step, nil
}

func (r *StepRepository) ListByPlaybook(_ context.Context, playbookID string) ([]domain.PlaybookStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stepsLocked(playbookID), nil
}

func (r *StepRepository) CountByPlaybook(_ context.Context, playbookID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stepsLocked(playbookID)), nil
}

func (r *StepRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *StepRepository) SetOrder(_ context.Context, id string, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	step, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	step.StepOrder = order
	step.UpdatedAt = time.Now()
	r.items[id] = step
	return nil
}

func (r *StepRepository) CloneSteps(_ context.Context, fromPlaybookID, toPlaybookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, step := range r.stepsLocked(fromPlaybookID) {
		clone := step
		clone.ID = newID()
		clone.PlaybookID = toPlaybookID
		clone.CreatedAt = time.Now()
		clone.UpdatedAt = clone.CreatedAt
		r.items[clone.ID] = clone
	}
	return nil
}

func (r *StepRepository) stepsLocked(playbookID string) []domain.PlaybookStep {
	var result []domain.PlaybookStep
	for _, step := range r.items {
		if step.PlaybookID == playbookID {
			result = append(result, step)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StepOrder < result[j].StepOrder })
	return result
}

// IncidentRepository is an in-memory repository.IncidentRepository.
type IncidentRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Incident
}

// NewIncidentRepository builds the repository.
func NewIncidentRepository() *IncidentRepository {
	return &IncidentRepository{items: make(map[string]domain.Incident)}
}

func (r *IncidentRepository) Create(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident.ID = newID()
	incident.CreatedAt = time.Now()
	incident.UpdatedAt = incident.CreatedAt
	r.items[incident.ID] = *incident
	return nil
}

func (r *IncidentRepository) Update(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[incident.ID]; !ok {
		return pgx.ErrNoRows
	}
	incident.UpdatedAt = time.Now()
	r.items[incident.ID] = *incident
	return nil
}

func (r *IncidentRepository) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	incident, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &incident, nil
}

func (r *IncidentRepository) ListWithFilter(_ context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Incident
	for _, incident := range r.items {
		if !matchesIncidentFilter(incident, filter) {
			continue
		}
		result = append(result, incident)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return paginate(result, filter.Limit, filter.Offset, 20), nil
}

func (r *IncidentRepository) ExistsByPlaybook(_ context.Context, playbookID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, incident := range r.items {
		if incident.PlaybookID != nil && *incident.PlaybookID == playbookID {
			return true, nil
		}
	}
	return false, nil
}

func matchesIncidentFilter(incident domain.Incident, filter repository.IncidentFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if incident.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IncidentType != nil && incident.IncidentType != *filter.IncidentType {
		return false
	}
	if filter.PlaybookID != nil && (incident.PlaybookID == nil || *incident.PlaybookID != *filter.PlaybookID) {
		return false
	}
	if filter.CreatedFrom != nil && incident.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && incident.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(incident.Title), term) &&
			!strings.Contains(strings.ToLower(incident.Description), term) {
			return false
		}
	}
	return true
}

// paginate applies the limit/offset window the SQL repositories apply,
// including their default page size when no limit is given.
func paginate[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// TaskRepository is an in-memory repository.TaskRepository.
type TaskRepository struct {
	mu    sync.RWMutex
	items map[string]domain.IncidentTask
}

// NewTaskRepository builds the repository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{items: make(map[string]domain.IncidentTask)}
}

func (r *TaskRepository) Create(_ context.Context, task *domain.IncidentTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = newID()
	task.CreatedAt = time.Now()
	r.items[task.ID] = *task
	return nil
}

func (r *TaskRepository) Update(_ context.Context, task *domain.IncidentTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.items[task.ID] = *task
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.IncidentTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &task, nil
}

func (r *TaskRepository) ListByIncident(_ context.Context, incidentID string) ([]domain.IncidentTask, error) {
	result := r.filtered(func(t domain.IncidentTask) bool { return t.IncidentID == incidentID })
	sort.Slice(result, func(i, j int) bool { return result[i].StepOrder < result[j].StepOrder })
	return result, nil
}

func (r *TaskRepository) ListByAssignee(_ context.Context, email string) ([]domain.IncidentTask, error) {
	result := r.filtered(func(t domain.IncidentTask) bool {
		return t.AssignedTo != nil && *t.AssignedTo == email
	})
	sort.Slice(result, func(i, j int) bool { return result[i].DueAt.Before(result[j].DueAt) })
	return result, nil
}

func (r *TaskRepository) ListOverdue(_ context.Context, now time.Time) ([]domain.IncidentTask, error) {
	result := r.filtered(func(t domain.IncidentTask) bool {
		return t.AssignedTo != nil && t.Overdue(now)
	})
	sort.Slice(result, func(i, j int) bool { return result[i].DueAt.Before(result[j].DueAt) })
	return result, nil
}

func (r *TaskRepository) filtered(keep func(domain.IncidentTask) bool) []domain.IncidentTask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.IncidentTask
	for _, task := range r.items {
		if keep(task) {
			result = append(result, task)
		}
	}
	return result
}

// NotificationRepository is an in-memory repository.NotificationRepository.
type NotificationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[string]domain.Notification)}
}

func (r *NotificationRepository) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification.ID = newID()
	notification.CreatedAt = time.Now()
	r.items[notification.ID] = *notification
	return nil
}

func (r *NotificationRepository) Exists(_ context.Context, userEmail string, notificationType domain.NotificationType, entityID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.items {
		if n.UserEmail == userEmail && n.Type == notificationType && n.EntityID == entityID {
			return true, nil
		}
	}
	return false, nil
}

func (r *NotificationRepository) ListForUser(_ context.Context, userEmail string, limit, offset int) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Notification
	for _, n := range r.items {
		if n.UserEmail == userEmail {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
		r.items[id] = n
	}
	return nil
}

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository builds the repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = newID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.items[user.ID] = *user
	return nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.items[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.items {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}
