package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digkill/TwinBot/internal/models"
	"github.com/digkill/TwinBot/internal/observability"
	"github.com/digkill/TwinBot/internal/repository"
)

// UserStore is implemented by every backend in internal/repository.
type UserStore interface {
	FindByUserID(ctx context.Context, userID int64) (*models.User, error)
	Ensure(ctx context.Context, userID int64) (bool, error)
	IncrementUsage(ctx context.Context, userID int64) (*models.User, error)
	SetPaid(ctx context.Context, userID int64, paid bool) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type UserService struct {
	users   UserStore
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewUserService(users UserStore, log *slog.Logger, metrics *observability.Metrics) *UserService {
	return &UserService{users: users, log: log, metrics: metrics}
}

func (s *UserService) Ensure(ctx context.Context, userID int64) (bool, error) {
	created, err := s.users.Ensure(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	return created, nil
}

// Status returns the stored record, or a fresh unpaid record with a zero
// counter when the lookup misses or the store is unavailable. Only the
// latter is logged and counted.
func (s *UserService) Status(ctx context.Context, userID int64) models.User {
	user, err := s.users.FindByUserID(ctx, userID)
	if err == nil {
		return *user
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("user lookup failed, assuming unpaid", "user_id", userID, "err", err)
		if s.metrics != nil {
			s.metrics.StoreUnavailable.WithLabelValues("users").Inc()
		}
	}
	return models.User{UserID: userID}
}

// RecordUsage consumes one unit of free quota and returns the updated record.
// It is persisted before anything else in the turn runs.
func (s *UserService) RecordUsage(ctx context.Context, userID int64) (models.User, error) {
	user, err := s.users.IncrementUsage(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("record usage: %w", err)
	}
	return *user, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.FindByUserID(ctx, userID)
}

func (s *UserService) SetPaid(ctx context.Context, userID int64, paid bool) error {
	return s.users.SetPaid(ctx, userID, paid)
}

func (s *UserService) ListUserIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}
