package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaaya/ai-navigator/internal/domain"
)

func TestStorePutGet(t *testing.T) {
	s := NewStore()
	ing := &domain.Ingest{ID: "abc", Status: domain.IngestCompleted}
	s.Put(ing)

	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Same(t, ing, got)
}

func TestStoreGetMissing(t *testing.T) {
	s := NewStore()
	_, err := s.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStoreLatest(t *testing.T) {
	s := NewStore()
	_, err := s.Latest()
	require.Error(t, err, "empty store has no latest ingest")

	older := &domain.Ingest{ID: "old", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &domain.Ingest{ID: "new", CreatedAt: time.Now()}
	s.Put(older)
	s.Put(newer)

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
}
