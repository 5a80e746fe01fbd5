package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"videoripper/internal"
	"videoripper/utils"
)

// SnapshotExt is the extension of the lookup record written per identifier
const SnapshotExt = ".json"

// Snapshot is the on-disk form of a lookup record
type Snapshot struct {
	Identifier string                 `json:"identifier"`
	Kind       string                 `json:"kind"`
	Key        string                 `json:"key"`
	Keyword    string                 `json:"keyword,omitempty"`
	SavedAt    time.Time              `json:"saved_at"`
	Record     map[string]interface{} `json:"record"`
}

// SnapshotWriter stores lookup records next to the downloaded media
type SnapshotWriter struct {
	fileOps *utils.FileOperations
	now     func() time.Time
}

// NewSnapshotWriter creates a new SnapshotWriter
func NewSnapshotWriter() *SnapshotWriter {
	return &SnapshotWriter{
		fileOps: utils.NewFileOperations(),
		now:     time.Now,
	}
}

var _ internal.MetadataWriter = (*SnapshotWriter)(nil)

// SnapshotPath returns where the record for key is stored in dir
func SnapshotPath(dir, key string) string {
	return filepath.Join(dir, key+SnapshotExt)
}

// WriteSnapshot writes record to <dir>/<key>.json, replacing any earlier one
func (w *SnapshotWriter) WriteSnapshot(dir string, id internal.Identifier, key string, record map[string]interface{}) error {
	snapshot := &Snapshot{
		Identifier: id.String(),
		Kind:       id.Kind.String(),
		Key:        key,
		SavedAt:    w.now().UTC(),
		Record:     record,
	}
	if id.Kind == internal.KindCollection {
		snapshot.Keyword = id.Name
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := SnapshotPath(dir, key)
	if err := w.fileOps.WriteFile(path, data); err != nil {
		return internal.NewCrawlError(0, "failed to write snapshot", internal.ErrFilesystem).
			WithCause(err).
			WithContext("path", path)
	}

	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
