package install

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/xivkit/modpack/internal/logger"
)

const (
	// MarkerFilename marks that an install is running right now to avoid
	// parallel batches against the same store.
	MarkerFilename = "modpack-install-marker.bin"

	// markerLifetime is how long a marker is trusted without checking
	// whether its owner is still alive.
	markerLifetime = 30 * time.Minute
)

// writeMarker records this process as the running installer.
func writeMarker() error {
	return os.WriteFile(MarkerFilename, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// removeMarker is best-effort cleanup on every exit path.
func removeMarker() {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}
}

// IsInstallRunningNow checks presence of a marker file and attempts recovery
// if it looks stale. A fresh marker is trusted as-is; a stale one is
// reclaimed only when its recorded owner process is gone.
func IsInstallRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Infof(ctx, "Unable to read install marker: %v", err)
		}

		return false
	}

	if time.Since(fileInfo.ModTime()) <= markerLifetime {
		return true
	}

	logger.Info(ctx, "The install marker is too old, attempting cleanup")

	if markerOwnerAlive(ctx) {
		return true
	}

	if err = os.Remove(MarkerFilename); err != nil {
		return true
	}

	return false
}

// markerOwnerAlive reports whether the process recorded in the marker still
// exists. An unreadable marker is treated as owned to stay on the safe side.
func markerOwnerAlive(ctx context.Context) bool {
	contents, err := os.ReadFile(MarkerFilename)
	if err != nil {
		return true
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		logger.Infof(ctx, "Install marker holds no owner pid: %v", err)
		return true
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return true
	}

	return process != nil
}
