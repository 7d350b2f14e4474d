package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/executor"
)

// MemoryStore keeps tasks in process memory. Used by the dev profile and by
// tests; the worker semantics match the Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*memoryTask
	queue []string
	clock func() time.Time
}

type memoryTask struct {
	task       Task
	leaseUntil time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: map[string]*memoryTask{},
		clock: time.Now,
	}
}

func (s *MemoryStore) Enqueue(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.State = StatePending
	s.tasks[task.ID] = &memoryTask{task: task}
	s.queue = append(s.queue, task.ID)
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, consumerID string, leaseSeconds int) (Task, bool, error) {
	if leaseSeconds <= 0 {
		leaseSeconds = 30
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, taskID := range s.queue {
		entry, ok := s.tasks[taskID]
		if !ok || entry.task.State != StatePending {
			continue
		}
		s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
		entry.task.State = StateRunning
		entry.task.UpdatedAt = s.clock().UTC()
		entry.leaseUntil = s.clock().UTC().Add(time.Duration(leaseSeconds) * time.Second)
		_ = consumerID
		return entry.task, true, nil
	}
	return Task{}, false, nil
}

func (s *MemoryStore) Complete(_ context.Context, taskID string, result executor.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if entry.task.State != StateRunning {
		return ErrNotRunning
	}
	entry.task.State = StateSuccess
	entry.task.Result = &result
	entry.task.UpdatedAt = s.clock().UTC()
	entry.leaseUntil = time.Time{}
	return nil
}

func (s *MemoryStore) Fail(_ context.Context, taskID string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if entry.task.State != StateRunning {
		return ErrNotRunning
	}
	entry.task.State = StateFailure
	entry.task.Error = message
	entry.task.UpdatedAt = s.clock().UTC()
	entry.leaseUntil = time.Time{}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, taskID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	return entry.task, nil
}

func (s *MemoryStore) RequeueExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	count := 0
	for taskID, entry := range s.tasks {
		if entry.task.State != StateRunning {
			continue
		}
		if entry.leaseUntil.IsZero() || entry.leaseUntil.After(now) {
			continue
		}
		entry.task.State = StatePending
		entry.task.UpdatedAt = now
		entry.leaseUntil = time.Time{}
		s.queue = append(s.queue, taskID)
		count++
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
