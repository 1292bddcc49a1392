// Package transfer implements whole-canvas export and import: a consistent
// snapshot is serialized to a portable archive, and importing remaps every
// id so the copy is referentially self-contained.
package transfer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kittclouds/lorekeep/internal/store"
)

// FormatVersion is the current version of the archive format.
// Increment when making breaking changes to the manifest.
const FormatVersion = 1

const (
	manifestName  = "manifest.json"
	attachmentDir = "attachments/"
)

// Sentinel errors of the transfer pipeline.
var (
	// ErrMalformedArchive indicates a structurally invalid archive: bad
	// container, unparseable manifest, unsupported version, or a missing
	// attachment. Never retried automatically.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrRemap indicates a foreign key inside the archive could not be
	// resolved during rewriting. Treated as archive corruption.
	ErrRemap = errors.New("id remap failed")

	// ErrImportFailed indicates the transactional commit failed. The store
	// is rolled back; retrying the whole import is safe.
	ErrImportFailed = errors.New("import failed")
)

// Manifest is the portable description of one canvas, using the original
// (pre-remap) ids. Unknown future keys are ignored on read so the format
// can grow without breaking old archives.
type Manifest struct {
	Version    int   `json:"version"`
	ExportedAt int64 `json:"exportedAt"`
	store.Snapshot
}

// Archive is a decoded container: manifest plus attachment bytes addressed
// by the filenames the photo records reference.
type Archive struct {
	Manifest    Manifest
	Attachments map[string][]byte
}

// Encode serializes a snapshot and its attachment bytes into the archive
// container: a zip holding manifest.json and one entry per attachment.
func Encode(snap *store.Snapshot, attachments map[string][]byte, exportedAt int64) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	m := Manifest{Version: FormatVersion, ExportedAt: exportedAt, Snapshot: *snap}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	w, err := zw.Create(manifestName)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(manifest); err != nil {
		return nil, err
	}

	for _, p := range snap.Photos {
		data, ok := attachments[p.Filename]
		if !ok {
			return nil, fmt.Errorf("attachment %s missing from export set", p.Filename)
		}
		w, err := zw.Create(attachmentDir + p.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an archive. The check is purely structural: container,
// manifest, version, and attachment presence. Cross-entity referential
// integrity is the remapper's job.
func Decode(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid container", ErrMalformedArchive)
	}

	arch := &Archive{Attachments: make(map[string][]byte)}
	foundManifest := false

	for _, f := range zr.File {
		switch {
		case f.Name == manifestName:
			raw, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("%w: unreadable manifest", ErrMalformedArchive)
			}
			if err := json.Unmarshal(raw, &arch.Manifest); err != nil {
				return nil, fmt.Errorf("%w: unparseable manifest", ErrMalformedArchive)
			}
			foundManifest = true
		case strings.HasPrefix(f.Name, attachmentDir):
			raw, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("%w: unreadable attachment %s", ErrMalformedArchive, f.Name)
			}
			arch.Attachments[strings.TrimPrefix(f.Name, attachmentDir)] = raw
		}
	}

	if !foundManifest {
		return nil, fmt.Errorf("%w: missing manifest", ErrMalformedArchive)
	}
	if arch.Manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformedArchive, arch.Manifest.Version)
	}
	for _, p := range arch.Manifest.Photos {
		if _, ok := arch.Attachments[p.Filename]; !ok {
			return nil, fmt.Errorf("%w: missing attachment %s", ErrMalformedArchive, p.Filename)
		}
	}
	return arch, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
