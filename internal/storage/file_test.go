package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreInterviews(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	older := &InterviewRecord{ID: "a", UserID: "u1", Role: "Backend", Type: "Technical", Level: "Senior", CreatedAt: base}
	newer := &InterviewRecord{ID: "b", UserID: "u1", Role: "Frontend", Type: "Behavioral", Level: "Beginner", CreatedAt: base.Add(time.Hour)}
	other := &InterviewRecord{ID: "c", UserID: "u2", Role: "QA", Type: "Technical", Level: "Senior", CreatedAt: base}

	for _, rec := range []*InterviewRecord{older, newer, other} {
		require.NoError(t, store.SaveInterview(ctx, rec))
	}

	got, err := store.GetInterview(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Frontend", got.Role)

	list, err := store.ListInterviews(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	all, err := store.ListInterviews(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = store.GetInterview(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.SaveInterview(ctx, &InterviewRecord{ID: "../escape"}))
}

func TestFileStoreUsers(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveUser(ctx, &User{ID: "u1", Name: "Ada", Email: "ada@example.com"}))
	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	_, err = store.GetUser(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}
