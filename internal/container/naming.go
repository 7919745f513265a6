package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ResolveOutputPath decides the archive's final path inside dir. When a file
// of the plain name exists and overwrite is off, the lowest free numeric
// suffix is taken: Foo.ttmp2, Foo(1).ttmp2, Foo(2).ttmp2 and so on. With
// overwrite on, the existing file is deleted first.
func ResolveOutputPath(dir, name string, overwrite bool) (string, error) {
	candidate := filepath.Join(dir, name+ArchiveExtension)

	if overwrite {
		if err := os.Remove(candidate); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove existing archive: %w", err)
		}

		return candidate, nil
	}

	for i := 0; ; i++ {
		if i > 0 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", name, i, ArchiveExtension))
		}

		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}

		if err != nil {
			return "", fmt.Errorf("probe output path: %w", err)
		}
	}
}
