package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "alerty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, settings.ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, s.Put(ctx, "k", []byte(`{"a":2}`)))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestStore_ReopenKeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerty.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	var versions int
	require.NoError(t, s.db.Get(&versions, "SELECT COUNT(*) FROM schema_version"))
	assert.Equal(t, 1, versions)
}

func TestStore_WithSettingsService(t *testing.T) {
	svc := settings.NewService(openTestStore(t))
	ctx := context.Background()

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), got)

	want := domain.NotificationSettings{VibrationEnabled: true, VibrationPattern: domain.VibrationLong}
	require.NoError(t, svc.Save(ctx, want))

	got, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
