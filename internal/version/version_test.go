package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVersionStrings pins the version line's shape: it names the tool,
// carries the semantic version, and mentions the commit.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())

	full := Full()
	require.Contains(t, full, "modpack ")
	require.Contains(t, full, Short())
	require.Contains(t, full, Commit)
}
