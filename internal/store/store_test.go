package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivkit/modpack/internal/manifest"
)

// TestKindForPath covers the extension-to-kind classification table.
func TestKindForPath(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{
		"chara/equipment/e0001/diffuse.tex": KindTexture,
		"chara/equipment/e0001/top.MDL":     KindModel,
		"chara/equipment/e0001/a.mtrl":      KindStandard,
		"noextension":                       KindStandard,
	}
	for destination, want := range cases {
		require.Equal(t, want, KindForPath(destination), destination)
	}
}

// TestRecomputeGate_NestsAndResumesOnce verifies the reference counting and
// resume idempotency.
func TestRecomputeGate_NestsAndResumesOnce(t *testing.T) {
	t.Parallel()

	gate := new(RecomputeGate)
	require.False(t, gate.Suspended())

	outer := gate.Suspend()
	inner := gate.Suspend()
	require.True(t, gate.Suspended())

	inner()
	require.True(t, gate.Suspended())

	// Calling the same resume again must not release the outer hold.
	inner()
	require.True(t, gate.Suspended())

	outer()
	require.False(t, gate.Suspended())
}

// TestRecomputeGate_ConcurrentHolders exercises the gate under parallel batches.
func TestRecomputeGate_ConcurrentHolders(t *testing.T) {
	t.Parallel()

	gate := new(RecomputeGate)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resume := gate.Suspend()
			defer resume()

			require.True(t, gate.Suspended())
		}()
	}

	wg.Wait()
	require.False(t, gate.Suspended())
}

// TestRegistry_PathAndPackageLookup checks record lookup and the name-only
// package match.
func TestRegistry_PathAndPackageLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.Nil(t, reg.FindByPath("chara/a.tex"))
	require.False(t, reg.HasPackage("Aureate Set"))

	record := NewRecord("chara/a.tex")
	reg.Add(record)
	require.Same(t, record, reg.FindByPath("chara/a.tex"))

	reg.AddPackage(manifest.Provenance{Name: "Aureate Set", Version: "1.0.0"})
	require.True(t, reg.HasPackage("Aureate Set"))
	// Same name, different version still counts as applied.
	require.True(t, reg.HasPackage("Aureate Set"))
}

// TestWriteError_UnwrapsSentinel ensures errors.Is sees through the wrapper.
func TestWriteError_UnwrapsSentinel(t *testing.T) {
	t.Parallel()

	err := &WriteError{
		Path:   "chara/a.tex",
		Bucket: 4,
		Err:    fmt.Errorf("kind 9: %w", ErrUnsupportedKind),
	}

	require.ErrorIs(t, err, ErrUnsupportedKind)
	require.False(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), "chara/a.tex")
}
