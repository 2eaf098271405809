package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Credential store
// ---------------------------------------------------------------------------

type stubCredentialStore struct {
	mu      sync.Mutex
	users   map[string]*domain.User // by id
	findErr error
	seq     int
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubCredentialStore) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = cloneUser(u)
	return u
}

func (r *stubCredentialStore) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *stubCredentialStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubCredentialStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubCredentialStore) Create(_ context.Context, name, email, credential string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	u := &domain.User{
		ID:           fmt.Sprintf("user-%d", r.seq),
		Name:         name,
		Email:        email,
		PasswordHash: "hashed:" + credential,
		Role:         domain.RoleMember,
	}
	r.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (r *stubCredentialStore) VerifyCredential(user *domain.User, plaintext string) bool {
	return user.PasswordHash == "hashed:"+plaintext
}

// ---------------------------------------------------------------------------
// Task store
// ---------------------------------------------------------------------------

type stubTaskStore struct {
	mu        sync.Mutex
	tasks     map[string]*domain.Task
	seq       int
	createErr error
	updates   int
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{tasks: make(map[string]*domain.Task)}
}

func cloneTask(t *domain.Task) *domain.Task {
	clone := *t
	clone.Owner = nil
	return &clone
}

func (r *stubTaskStore) seed(t *domain.Task) *domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		r.seq++
		t.ID = fmt.Sprintf("task-%d", r.seq)
	}
	r.tasks[t.ID] = cloneTask(t)
	return t
}

func (r *stubTaskStore) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}

func (r *stubTaskStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *stubTaskStore) Find(_ context.Context, filter ports.TaskFilter) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter.OwnerID == "" || t.OwnerID == filter.OwnerID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubTaskStore) FindByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *stubTaskStore) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	t.ID = fmt.Sprintf("task-%d", r.seq)
	r.tasks[t.ID] = cloneTask(t)
	return nil
}

func (r *stubTaskStore) UpdateByID(_ context.Context, id string, changes domain.TaskChanges) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	changes.Apply(t)
	r.updates++
	return cloneTask(t), nil
}

func (r *stubTaskStore) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

// ---------------------------------------------------------------------------
// Notifier and idempotency store
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (n *recordingNotifier) Notify(event domain.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []domain.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.NotificationEvent(nil), n.events...)
}

// stubIdempotency mirrors the Redis store: a claimed key holds "" until
// Remember records the task id.
type stubIdempotency struct {
	mu       sync.Mutex
	keys     map[string]string
	claimErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]string)}
}

func (s *stubIdempotency) Claim(_ context.Context, ownerID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return "", false, s.claimErr
	}
	taskID, taken := s.keys[ownerID+":"+key]
	if taken {
		return taskID, false, nil
	}
	s.keys[ownerID+":"+key] = ""
	return "", true, nil
}

func (s *stubIdempotency) Remember(_ context.Context, ownerID, key, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[ownerID+":"+key] = taskID
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, ownerID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, ownerID+":"+key)
	return nil
}

var _ ports.CredentialStore = (*stubCredentialStore)(nil)
var _ ports.TaskStore = (*stubTaskStore)(nil)
var _ ports.Notifier = (*recordingNotifier)(nil)
var _ ports.IdempotencyStore = (*stubIdempotency)(nil)
