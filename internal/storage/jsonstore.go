// Package storage keeps the catalog and customer list in a JSON snapshot file.
//
// Writes go to path+".tmp" first and are renamed over the real file, so an
// interrupted save never leaves a truncated snapshot behind.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

const (
	storageKind    = "json_snapshot"
	currentVersion = 1
)

// Meta describes how and when a snapshot was written.
type Meta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the on-disk layout.
type Snapshot struct {
	Meta      Meta              `json:"_meta"`
	Items     []models.Item     `json:"items"`
	Customers []models.Customer `json:"customers"`
}

// JSONStore loads and saves snapshots at a fixed path.
type JSONStore struct {
	path   string
	logger *zap.Logger
}

// NewJSONStore creates a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path:   path,
		logger: util.GetLogger(),
	}
}

// Path returns the snapshot file location
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields empty collections.
func (s *JSONStore) Load(ctx context.Context) ([]models.Item, []models.Customer, error) {
	_, span := util.StartSpan(ctx, "JSONStore.Load")
	defer span.End()

	snap, err := LoadSnapshot(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("No snapshot found, starting empty", zap.String("path", s.path))
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Snapshot loaded",
		zap.String("path", s.path),
		zap.Int("items", len(snap.Items)),
		zap.Int("customers", len(snap.Customers)))
	return snap.Items, snap.Customers, nil
}

// Save writes items and customers as a new snapshot.
func (s *JSONStore) Save(ctx context.Context, items []models.Item, customers []models.Customer) error {
	_, span := util.StartSpan(ctx, "JSONStore.Save")
	defer span.End()

	if items == nil {
		items = []models.Item{}
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	return SaveSnapshot(s.path, Snapshot{Items: items, Customers: customers})
}

// LoadSnapshot reads and decodes the snapshot at path.
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if snap.Meta.Version > currentVersion {
		return snap, fmt.Errorf("snapshot %s has unsupported version %d", path, snap.Meta.Version)
	}
	return snap, nil
}

// SaveSnapshot stamps the metadata and atomically replaces the file at path.
func SaveSnapshot(path string, snap Snapshot) error {
	snap.Meta = Meta{Storage: storageKind, Version: currentVersion, Timestamp: time.Now()}
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return os.Rename(tmp, path)
}
