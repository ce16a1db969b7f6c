package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerator_NewIDIsUniqueV7(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[string]struct{})
	var prev string
	for i := 0; i < 100; i++ {
		id, err := gen.NewID()
		require.NoError(t, err)
		parsed, err := goUUID.Parse(id)
		require.NoError(t, err)
		require.Equal(t, goUUID.Version(7), parsed.Version())
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
		if prev != "" {
			require.Greater(t, id, prev)
		}
		prev = id
	}
}
