package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsSavesFromAnotherRepository(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	config := viper.New()
	config.Set("accounts.path", accountsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)

	changed := make(chan struct{}, 8)
	watcher, err := NewWatcher(repo.Path(), WatcherConfig{
		Debounce: 20 * time.Millisecond,
		OnChange: func() { changed <- struct{}{} },
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start(context.Background()))
	t.Cleanup(func() { _ = watcher.Stop() })

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "225551234", Name: "Home"}))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported for accounts file")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changed := make(chan struct{}, 8)
	watcher, err := NewWatcher(filepath.Join(dir, "accounts.toml"), WatcherConfig{
		Debounce: 20 * time.Millisecond,
		OnChange: func() { changed <- struct{}{} },
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start(context.Background()))
	t.Cleanup(func() { _ = watcher.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("x = 1\n"), 0o600))

	select {
	case <-changed:
		t.Fatal("unexpected change for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStartTwiceFails(t *testing.T) {
	t.Parallel()

	watcher, err := NewWatcher(filepath.Join(t.TempDir(), "accounts.toml"), WatcherConfig{})
	require.NoError(t, err)
	require.NoError(t, watcher.Start(context.Background()))

	err = watcher.Start(context.Background())
	require.ErrorContains(t, err, "already running")
	require.NoError(t, watcher.Stop())
}
