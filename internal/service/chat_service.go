package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digkill/TwinBot/internal/observability"
)

// Completer produces the model reply for a turn.
type Completer interface {
	Complete(ctx context.Context, memoryTail, userMessage string) (string, error)
}

type Turn struct {
	UserID int64
	Text   string
}

type TurnResult struct {
	Decision     Decision
	Reply        string
	MessagesUsed int
	Paid         bool
}

// ChatService runs one turn: ensure the user, apply the paywall, and for
// allowed turns generate a reply and persist the updated memory.
type ChatService struct {
	users   *UserService
	memory  *MemoryService
	model   Completer
	limits  Limits
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewChatService(users *UserService, memory *MemoryService, model Completer, limits Limits, log *slog.Logger, metrics *observability.Metrics) *ChatService {
	return &ChatService{
		users:   users,
		memory:  memory,
		model:   model,
		limits:  limits,
		log:     log,
		metrics: metrics,
	}
}

// HandleTurn returns the paywall decision and, when allowed, the generated
// reply. Any error means the turn produced nothing to send; quota already
// consumed is not refunded.
func (s *ChatService) HandleTurn(ctx context.Context, turn Turn) (TurnResult, error) {
	log := s.log.With("user_id", turn.UserID)

	created, err := s.users.Ensure(ctx, turn.UserID)
	if err != nil {
		return TurnResult{}, err
	}
	if created {
		log.Info("new user")
	}

	user := s.users.Status(ctx, turn.UserID)
	if !user.Paid {
		user, err = s.users.RecordUsage(ctx, turn.UserID)
		if err != nil {
			return TurnResult{}, err
		}
	}

	result := TurnResult{
		Decision:     Decide(user.Paid, user.MessagesUsed, s.limits),
		MessagesUsed: user.MessagesUsed,
		Paid:         user.Paid,
	}
	if result.Decision != DecisionAllow {
		log.Info("paywall stopped turn", "decision", result.Decision, "messages_used", user.MessagesUsed)
		return result, nil
	}

	prior := s.memory.Read(ctx, turn.UserID)

	start := time.Now()
	reply, err := s.model.Complete(ctx, s.memory.PromptTail(prior), turn.Text)
	if s.metrics != nil {
		s.metrics.ObserveCompletion(time.Since(start), err)
	}
	if err != nil {
		return TurnResult{}, fmt.Errorf("generate reply: %w", err)
	}

	if _, err := s.memory.Save(ctx, turn.UserID, prior, Exchange(turn.Text, reply)); err != nil {
		return TurnResult{}, err
	}

	result.Reply = reply
	return result, nil
}
