// Package dataset maps logical snapshot identifiers to on-disk paths and
// tracks which snapshot is active. Each snapshot owns an independent database
// image and media directory; the metadata record and the snapshot directories
// are independent, so EnsureDatasetLayout must run before a snapshot id is
// first used.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrUnknownSnapshot is returned when an id is not present in the metadata.
var ErrUnknownSnapshot = errors.New("unknown snapshot")

// Snapshot describes one dataset in the metadata record.
type Snapshot struct {
	ID            string    `yaml:"id"`
	Label         string    `yaml:"label"`
	CreatedAt     time.Time `yaml:"created_at"`
	SourceArchive *string   `yaml:"source_archive,omitempty"`
	IsActive      bool      `yaml:"is_active"`
}

type metadata struct {
	Snapshots []Snapshot `yaml:"snapshots"`
}

// Directory resolves snapshot ids to paths under a single data root.
type Directory struct {
	root string
}

func NewDirectory(root string) *Directory { return &Directory{root: root} }

// Root returns the data root directory.
func (d *Directory) Root() string { return d.root }

// MetadataPath returns the location of the snapshot metadata record.
func (d *Directory) MetadataPath() string { return filepath.Join(d.root, "snapshots.yaml") }

// GetDatasetDir derives the directory owning a snapshot's files. Pure, no I/O.
func (d *Directory) GetDatasetDir(id string) string {
	return filepath.Join(d.root, "datasets", id)
}

// GetDatabasePath derives a snapshot's database image path. Pure, no I/O.
func (d *Directory) GetDatabasePath(id string) string {
	return filepath.Join(d.GetDatasetDir(id), "ledger.db")
}

// GetMediaDir derives a snapshot's media root. Pure, no I/O.
func (d *Directory) GetMediaDir(id string) string {
	return filepath.Join(d.GetDatasetDir(id), "media")
}

// EnsureDatasetLayout creates the snapshot's directories if missing.
func (d *Directory) EnsureDatasetLayout(id string) error {
	if err := os.MkdirAll(d.GetMediaDir(id), 0o755); err != nil {
		return fmt.Errorf("create dataset layout for %s: %w", id, err)
	}
	return nil
}

// ListSnapshots returns all known snapshots. An absent metadata file is an
// empty list, not an error.
func (d *Directory) ListSnapshots() ([]Snapshot, error) {
	m, err := d.load()
	if err != nil {
		return nil, err
	}
	return m.Snapshots, nil
}

// EnsureActiveSnapshot returns the active snapshot, creating and activating a
// default one when none is marked active.
func (d *Directory) EnsureActiveSnapshot() (Snapshot, error) {
	m, err := d.load()
	if err != nil {
		return Snapshot{}, err
	}
	for _, s := range m.Snapshots {
		if s.IsActive {
			if err := d.EnsureDatasetLayout(s.ID); err != nil {
				return Snapshot{}, err
			}
			return s, nil
		}
	}
	def := Snapshot{
		ID:        uuid.NewString(),
		Label:     "Default",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		IsActive:  true,
	}
	m.Snapshots = append(m.Snapshots, def)
	if err := d.save(m); err != nil {
		return Snapshot{}, err
	}
	if err := d.EnsureDatasetLayout(def.ID); err != nil {
		return Snapshot{}, err
	}
	return def, nil
}

// ActivateSnapshot marks exactly one snapshot active. The whole metadata
// record is rewritten in one step so activation is all-or-nothing.
func (d *Directory) ActivateSnapshot(id string) error {
	m, err := d.load()
	if err != nil {
		return err
	}
	found := false
	for i := range m.Snapshots {
		if m.Snapshots[i].ID == id {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownSnapshot, id)
	}
	for i := range m.Snapshots {
		m.Snapshots[i].IsActive = m.Snapshots[i].ID == id
	}
	return d.save(m)
}

// AddSnapshot appends a descriptor, deactivating all others first when
// makeActive is set.
func (d *Directory) AddSnapshot(s Snapshot, makeActive bool) error {
	m, err := d.load()
	if err != nil {
		return err
	}
	if makeActive {
		for i := range m.Snapshots {
			m.Snapshots[i].IsActive = false
		}
		s.IsActive = true
	}
	m.Snapshots = append(m.Snapshots, s)
	return d.save(m)
}

func (d *Directory) load() (metadata, error) {
	var m metadata
	data, err := os.ReadFile(d.MetadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("read snapshot metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse snapshot metadata: %w", err)
	}
	return m, nil
}

// save rewrites the whole metadata record through a temp file and rename.
func (d *Directory) save(m metadata) error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode snapshot metadata: %w", err)
	}
	tmp := d.MetadataPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot metadata: %w", err)
	}
	if err := os.Rename(tmp, d.MetadataPath()); err != nil {
		return fmt.Errorf("replace snapshot metadata: %w", err)
	}
	return nil
}
