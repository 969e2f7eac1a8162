package digest_test

import (
	"testing"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications/storagetest"
)

func TestMemoryDirectory(t *testing.T) {
	storagetest.RunDirectory(t, func(t *testing.T) digest.DirectoryStore { return digest.NewMemoryDirectory() })
}
