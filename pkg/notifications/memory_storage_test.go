package notifications_test

import (
	"testing"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.RunStorage(t, func(t *testing.T) notifications.Storage {
		return notifications.NewMemoryStorage()
	})
}

func TestMemoryPreferenceStore(t *testing.T) {
	storagetest.RunPreferences(t, func(t *testing.T) notifications.PreferenceStore {
		return notifications.NewMemoryPreferenceStore()
	})
}

func TestMemoryStatsStore(t *testing.T) {
	storagetest.RunStats(t, func(t *testing.T) notifications.StatsStore {
		return notifications.NewMemoryStatsStore()
	})
}

func TestPathIndex(t *testing.T) {
	storagetest.RunFileIndex(t, func(t *testing.T) notifications.FileIndexStore {
		return notifications.NewPathIndex()
	})
}
