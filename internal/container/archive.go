package container

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// ArchiveExtension is the on-disk extension of a built package.
	ArchiveExtension = ".ttmp2"

	// ManifestExtension and BlobExtension identify the two required members
	// inside the archive. Lookup is by extension, not by exact name, so
	// archives produced by other tools remain readable.
	ManifestExtension = ".mpl"
	BlobExtension     = ".mpd"

	// ManifestMemberName and BlobMemberName are the member names this
	// builder produces.
	ManifestMemberName = "TTMPL.mpl"
	BlobMemberName     = "TTMPD.mpd"

	// imageMemberDir prefixes preview image members.
	imageMemberDir = "images"
)

var (
	// errNoManifestMember is returned when an archive carries no manifest member.
	errNoManifestMember = errors.New("archive has no manifest member")
	// errNoBlobMember is returned when an archive carries no blob member.
	errNoBlobMember = errors.New("archive has no blob member")
)

// findMember returns the first archive member whose name ends in the
// provided extension.
func findMember(r *zip.Reader, extension string) *zip.File {
	for _, member := range r.File {
		if strings.HasSuffix(member.Name, extension) {
			return member
		}
	}

	return nil
}

// readMemberText reads one member fully as text.
func readMemberText(member *zip.File) (string, error) {
	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("open member %s: %w", member.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read member %s: %w", member.Name, err)
	}

	return string(data), nil
}
