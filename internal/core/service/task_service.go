package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// TaskService is the task lifecycle controller: it validates input, gates
// every operation through Authorize, persists through the TaskStore and
// reports each committed mutation to the Notifier.
//
// There is no lock around read-then-write sequences. A task deleted between
// the authorization read and the write surfaces as domain.ErrTaskNotFound.
type TaskService struct {
	tasks    ports.TaskStore
	users    ports.CredentialStore
	notifier ports.Notifier
	idem     ports.IdempotencyStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewTaskService wires the controller. idem may be nil, in which case
// idempotency keys are ignored.
func NewTaskService(
	tasks ports.TaskStore,
	users ports.CredentialStore,
	notifier ports.Notifier,
	idem ports.IdempotencyStore,
	log zerolog.Logger,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		idem:     idem,
		log:      log,
		now:      time.Now,
	}
}

// List returns every task for admins and only the caller's own tasks otherwise.
func (s *TaskService) List(ctx context.Context, p *domain.Principal) ([]*domain.Task, error) {
	if err := Authorize(p, ActionList, nil).Err(); err != nil {
		return nil, err
	}

	filter := ports.TaskFilter{OwnerID: p.ID}
	if p.IsAdmin() {
		filter.OwnerID = ""
	}

	tasks, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	s.populateOwners(ctx, p, tasks...)
	return tasks, nil
}

// Get returns one task. Missing tasks yield domain.ErrTaskNotFound; tasks the
// caller may not see yield domain.ErrForbidden.
func (s *TaskService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	if p == nil {
		return nil, domain.ErrNotAuthenticated
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := Authorize(p, ActionRead, task).Err(); err != nil {
		return nil, err
	}

	s.populateOwners(ctx, p, task)
	return task, nil
}

// Create stores a new task owned by the caller. Any owner supplied in the
// input is ignored. With an idempotency key, a repeated request returns the
// task created the first time and emits no second event; a repeat that
// arrives while the first is still running gets domain.ErrRequestInProgress.
func (s *TaskService) Create(ctx context.Context, p *domain.Principal, in ports.CreateTaskInput) (*domain.Task, error) {
	if err := Authorize(p, ActionCreate, nil).Err(); err != nil {
		return nil, err
	}

	title, err := domain.ValidateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	priority := domain.PriorityMedium
	if in.Priority != nil {
		if priority, err = domain.ParsePriority(*in.Priority); err != nil {
			return nil, err
		}
	}

	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		existing, won, err := s.claim(ctx, p, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		claimed = won
	}

	now := s.now().UTC()
	task := &domain.Task{
		OwnerID:     p.ID,
		Title:       title,
		Description: in.Description,
		Status:      domain.StatusTodo,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.log.Error().Err(err).Str("user_id", p.ID).Msg("failed to create task")
		if claimed {
			if rerr := s.idem.Release(ctx, p.ID, in.IdempotencyKey); rerr != nil {
				s.log.Warn().Err(rerr).Str("user_id", p.ID).Msg("failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	if claimed {
		if err := s.idem.Remember(ctx, p.ID, in.IdempotencyKey, task.ID); err != nil {
			s.log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to record idempotency key")
		}
	}

	task.Owner = p
	s.log.Info().Str("task_id", task.ID).Str("user_id", p.ID).Msg("task created")
	s.emit(domain.EventTaskCreated, fmt.Sprintf("New task created by %s: %s", p.Name, task.Title), task.ID, task)
	return task, nil
}

// Update applies the supplied fields only. Status may be set to any value
// from any value.
func (s *TaskService) Update(ctx context.Context, p *domain.Principal, id string, in ports.UpdateTaskInput) (*domain.Task, error) {
	if p == nil {
		return nil, domain.ErrNotAuthenticated
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := Authorize(p, ActionUpdate, task).Err(); err != nil {
		return nil, err
	}

	changes, err := toChanges(task, in)
	if err != nil {
		return nil, err
	}

	updated, err := s.tasks.UpdateByID(ctx, id, changes)
	if err != nil {
		if !errors.Is(err, domain.ErrTaskNotFound) {
			s.log.Error().Err(err).Str("task_id", id).Msg("failed to update task")
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.populateOwners(ctx, p, updated)
	s.log.Info().Str("task_id", id).Str("user_id", p.ID).Msg("task updated")
	s.emit(domain.EventTaskUpdated, fmt.Sprintf("Task \"%s\" was updated by %s", updated.Title, p.Name), updated.ID, updated)
	return updated, nil
}

// Delete removes a task. The event carries only the id since the body is gone.
func (s *TaskService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	if p == nil {
		return domain.ErrNotAuthenticated
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := Authorize(p, ActionDelete, task).Err(); err != nil {
		return err
	}

	if err := s.tasks.DeleteByID(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrTaskNotFound) {
			s.log.Error().Err(err).Str("task_id", id).Msg("failed to delete task")
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.log.Info().Str("task_id", id).Str("user_id", p.ID).Msg("task deleted")
	s.emit(domain.EventTaskDeleted, fmt.Sprintf("Task \"%s\" was deleted by %s", task.Title, p.Name), task.ID, nil)
	return nil
}

// toChanges validates the supplied fields against the current task.
func toChanges(current *domain.Task, in ports.UpdateTaskInput) (domain.TaskChanges, error) {
	var c domain.TaskChanges

	if in.Title != nil {
		title, err := domain.ValidateTitle(*in.Title)
		if err != nil {
			return c, err
		}
		c.Title = &title
	}
	if in.Description != nil {
		desc := *in.Description
		c.Description = &desc
	}
	if in.Status != nil {
		status, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return c, err
		}
		if !current.Status.CanTransitionTo(status) {
			return c, domain.NewValidationError("status", fmt.Sprintf("cannot move from %s to %s", current.Status, status))
		}
		c.Status = &status
	}
	if in.Priority != nil {
		priority, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return c, err
		}
		c.Priority = &priority
	}

	if c.Empty() {
		return c, domain.NewValidationError("fields", "at least one field must be supplied")
	}
	return c, nil
}

// claim reserves key for p. It returns the task a finished request with the
// same key produced, or won=true when this request should create the task.
// A store outage degrades to a plain create.
func (s *TaskService) claim(ctx context.Context, p *domain.Principal, key string) (existing *domain.Task, won bool, err error) {
	taskID, claimed, err := s.idem.Claim(ctx, p.ID, key)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", p.ID).Msg("idempotency claim failed, creating anyway")
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}
	if taskID == "" {
		return nil, false, domain.ErrRequestInProgress
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			// The original task was deleted; the key now maps to a new one.
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("idempotent replay: %w", err)
	}
	s.log.Info().Str("task_id", taskID).Str("user_id", p.ID).Msg("idempotent replay")
	task.Owner = p
	return task, false, nil
}

// emit hands the event to the notifier. It runs only after the store write
// has committed and never affects the result of the mutation.
func (s *TaskService) emit(kind domain.EventKind, message, taskID string, task *domain.Task) {
	event := domain.NotificationEvent{
		Kind:       kind,
		Message:    message,
		TaskID:     taskID,
		OccurredAt: s.now().UTC(),
	}
	if task != nil {
		snapshot := *task
		event.Task = &snapshot
	}
	s.notifier.Notify(event)
}

// populateOwners fills Task.Owner, looking each distinct owner up once.
// Lookup failures leave Owner nil.
func (s *TaskService) populateOwners(ctx context.Context, p *domain.Principal, tasks ...*domain.Task) {
	owners := map[string]*domain.Principal{p.ID: p}
	for _, t := range tasks {
		owner, seen := owners[t.OwnerID]
		if !seen {
			if u, err := s.users.FindByID(ctx, t.OwnerID); err == nil {
				owner = u.Principal()
			} else {
				s.log.Debug().Err(err).Str("owner_id", t.OwnerID).Msg("owner lookup failed")
			}
			owners[t.OwnerID] = owner
		}
		t.Owner = owner
	}
}
