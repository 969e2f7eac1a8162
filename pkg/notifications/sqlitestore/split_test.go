package sqlitestore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestSplitFilter(t *testing.T) {
	t.Parallel()

	t.Run("short lists stay whole", func(t *testing.T) {
		f := notifications.Filter{ToUser: 1, SourceRefs: []int64{1, 2}}
		assert.Equal(t, []notifications.Filter{f}, splitFilter(f, 500))
	})

	t.Run("long lists are chunked on both axes", func(t *testing.T) {
		ids := make([]uuid.UUID, 5)
		for i := range ids {
			ids[i] = uuid.New()
		}
		f := notifications.Filter{IDs: ids, SourceRefs: []int64{1, 2, 3}, Course: 10}

		parts := splitFilter(f, 2)
		require.Len(t, parts, 6)

		seen := map[uuid.UUID]map[int64]bool{}
		for _, p := range parts {
			assert.LessOrEqual(t, len(p.IDs), 2)
			assert.LessOrEqual(t, len(p.SourceRefs), 2)
			assert.Equal(t, int64(10), p.Course)
			for _, id := range p.IDs {
				if seen[id] == nil {
					seen[id] = map[int64]bool{}
				}
				for _, ref := range p.SourceRefs {
					assert.False(t, seen[id][ref], "pair covered twice")
					seen[id][ref] = true
				}
			}
		}
		assert.Len(t, seen, 5)
		for _, refs := range seen {
			assert.Len(t, refs, 3)
		}
	})
}
