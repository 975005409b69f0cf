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

type MemoryStore interface {
	Find(ctx context.Context, userID int64) (*models.Memory, error)
	Upsert(ctx context.Context, userID int64, content string) error
}

// MemoryService keeps a bounded trailing window of each user's transcript.
// Sizes are counted in characters (runes), never bytes, so a cut never lands
// inside a multi-byte character.
type MemoryService struct {
	memories   MemoryStore
	capChars   int
	promptTail int
	log        *slog.Logger
	metrics    *observability.Metrics
}

func NewMemoryService(memories MemoryStore, capChars, promptTail int, log *slog.Logger, metrics *observability.Metrics) *MemoryService {
	return &MemoryService{
		memories:   memories,
		capChars:   capChars,
		promptTail: promptTail,
		log:        log,
		metrics:    metrics,
	}
}

// Read returns the stored transcript, or "" when there is none or the store fails.
func (s *MemoryService) Read(ctx context.Context, userID int64) string {
	m, err := s.memories.Find(ctx, userID)
	if err == nil {
		return m.Content
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("memory lookup failed, using empty memory", "user_id", userID, "err", err)
		if s.metrics != nil {
			s.metrics.StoreUnavailable.WithLabelValues("memory").Inc()
		}
	}
	return ""
}

// Save stores the trailing capChars of prior+exchange, overwriting the
// previous value, and returns what was stored.
func (s *MemoryService) Save(ctx context.Context, userID int64, prior, exchange string) (string, error) {
	updated := Tail(prior+exchange, s.capChars)
	if err := s.memories.Upsert(ctx, userID, updated); err != nil {
		return "", fmt.Errorf("save memory: %w", err)
	}
	return updated, nil
}

// PromptTail is the slice of memory sent to the model.
func (s *MemoryService) PromptTail(content string) string {
	return Tail(content, s.promptTail)
}

// Exchange formats one turn the way it is appended to memory.
func Exchange(message, reply string) string {
	return "\nUser: " + message + "\nTwin: " + reply
}

// Tail returns the last n characters of s.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		// Fewer bytes than n means fewer runes too.
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
