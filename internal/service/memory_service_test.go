package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TwinBot/internal/models"
	"github.com/digkill/TwinBot/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type brokenMemoryStore struct{}

func (brokenMemoryStore) Find(context.Context, int64) (*models.Memory, error) {
	return nil, errors.New("connection refused")
}

func (brokenMemoryStore) Upsert(context.Context, int64, string) error {
	return errors.New("connection refused")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "", Tail("abc", 0))
	assert.Equal(t, "abc", Tail("abc", 5))
	assert.Equal(t, "bc", Tail("abc", 2))
	assert.Equal(t, "भाई🔥", Tail("अरे भाई🔥", 4))
	assert.True(t, utf8.ValidString(Tail(strings.Repeat("🔥", 100), 7)))
	assert.Equal(t, 7, utf8.RuneCountInString(Tail(strings.Repeat("🔥", 100), 7)))
}

func TestMemorySaveFirstTurn(t *testing.T) {
	ctx := context.Background()
	store := repository.NewLocalMemoryRepository()
	svc := NewMemoryService(store, 12000, 3000, discardLogger(), nil)

	prior := svc.Read(ctx, 1)
	assert.Equal(t, "", prior)

	stored, err := svc.Save(ctx, 1, prior, Exchange("hi", "yo bhai"))
	require.NoError(t, err)
	assert.Equal(t, "\nUser: hi\nTwin: yo bhai", stored)
	assert.Equal(t, stored, svc.Read(ctx, 1))
}

func TestMemorySaveNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	store := repository.NewLocalMemoryRepository()
	const capChars = 100
	svc := NewMemoryService(store, capChars, 40, discardLogger(), nil)

	prior := ""
	for i, n := range []int{1, 10, 99, 100, 101, 5000} {
		msg := strings.Repeat("ह", n)
		stored, err := svc.Save(ctx, 1, prior, Exchange(msg, "ok"))
		require.NoError(t, err, "iteration %d", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(stored), capChars)
		assert.True(t, strings.HasSuffix(stored, "\nTwin: ok"))
		prior = svc.Read(ctx, 1)
		assert.Equal(t, stored, prior)
	}
}

func TestMemoryPromptTail(t *testing.T) {
	svc := NewMemoryService(repository.NewLocalMemoryRepository(), 100, 10, discardLogger(), nil)
	assert.Equal(t, "0123456789", svc.PromptTail("xxxxx0123456789"))
	assert.Equal(t, "short", svc.PromptTail("short"))
}

func TestMemoryReadDegradesOnStoreFailure(t *testing.T) {
	svc := NewMemoryService(brokenMemoryStore{}, 100, 10, discardLogger(), nil)
	assert.NotPanics(t, func() {
		assert.Equal(t, "", svc.Read(context.Background(), 1))
	})
}

func TestMemorySaveSurfacesStoreFailure(t *testing.T) {
	svc := NewMemoryService(brokenMemoryStore{}, 100, 10, discardLogger(), nil)
	_, err := svc.Save(context.Background(), 1, "", Exchange("a", "b"))
	require.Error(t, err)
}
