package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/digkill/TwinBot/internal/models"
)

// LocalUserRepository keeps user records in process memory. It backs
// STORE_DRIVER=memory for local runs and the service tests.
type LocalUserRepository struct {
	mu    sync.Mutex
	users map[int64]models.User
}

func NewLocalUserRepository() *LocalUserRepository {
	return &LocalUserRepository{users: make(map[int64]models.User)}
}

func (r *LocalUserRepository) FindByUserID(_ context.Context, userID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *LocalUserRepository) Ensure(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; ok {
		return false, nil
	}
	now := time.Now().UTC()
	r.users[userID] = models.User{UserID: userID, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

func (r *LocalUserRepository) IncrementUsage(_ context.Context, userID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if !u.Paid {
		u.MessagesUsed++
		u.UpdatedAt = time.Now().UTC()
		r.users[userID] = u
	}
	return &u, nil
}

func (r *LocalUserRepository) SetPaid(_ context.Context, userID int64, paid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	u, ok := r.users[userID]
	if !ok {
		u = models.User{UserID: userID, CreatedAt: now}
	}
	u.Paid = paid
	u.UpdatedAt = now
	r.users[userID] = u
	return nil
}

func (r *LocalUserRepository) ListUserIDs(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LocalMemoryRepository keeps transcripts in process memory.
type LocalMemoryRepository struct {
	mu       sync.RWMutex
	contents map[int64]models.Memory
}

func NewLocalMemoryRepository() *LocalMemoryRepository {
	return &LocalMemoryRepository{contents: make(map[int64]models.Memory)}
}

func (r *LocalMemoryRepository) Find(_ context.Context, userID int64) (*models.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.contents[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r *LocalMemoryRepository) Upsert(_ context.Context, userID int64, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents[userID] = models.Memory{UserID: userID, Content: content, UpdatedAt: time.Now().UTC()}
	return nil
}
