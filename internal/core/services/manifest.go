package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// manifestVersion is bumped when the on-disk layout changes.
const manifestVersion = 1

// indexEntry maps one vector index position to a stored document.
// Entries are append-only; updating a document tombstones its old
// position rather than reusing it. Tombstones are compacted away by
// the next rebuild.
type indexEntry struct {
	DocID   int64 `json:"doc_id"`
	OwnerID int64 `json:"owner_id"`
	Deleted bool  `json:"deleted,omitempty"`
}

// manifest is the positional record of what lives at each index slot.
// Position i in the vector index corresponds to entries[i]. The caller
// (the retrieval engine) is responsible for locking.
type manifest struct {
	entries []indexEntry
}

// manifestFile is the persisted JSON envelope.
type manifestFile struct {
	Version int          `json:"version"`
	Entries []indexEntry `json:"entries"`
}

func newManifest() *manifest {
	return &manifest{entries: []indexEntry{}}
}

// loadManifest reads a manifest from disk. A missing file is returned
// as-is (os.IsNotExist) so the caller can start fresh; any other
// failure wraps domain.ErrIndexCorrupt.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read manifest: %v", domain.ErrIndexCorrupt, err)
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", domain.ErrIndexCorrupt, err)
	}
	if file.Version != manifestVersion {
		return nil, fmt.Errorf("%w: manifest version %d, want %d",
			domain.ErrIndexCorrupt, file.Version, manifestVersion)
	}

	m := newManifest()
	if file.Entries != nil {
		m.entries = file.Entries
	}
	return m, nil
}

// save writes the manifest atomically (temp file plus rename).
func (m *manifest) save(path string) error {
	file := manifestFile{Version: manifestVersion, Entries: m.entries}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// append records a new live entry and returns its position.
func (m *manifest) append(docID, ownerID int64) int {
	m.entries = append(m.entries, indexEntry{DocID: docID, OwnerID: ownerID})
	return len(m.entries) - 1
}

// at returns the entry at the given position.
func (m *manifest) at(pos int) (indexEntry, bool) {
	if pos < 0 || pos >= len(m.entries) {
		return indexEntry{}, false
	}
	return m.entries[pos], true
}

// len returns the total number of entries, tombstones included.
func (m *manifest) len() int {
	return len(m.entries)
}

// tombstone marks every live entry for the given document as deleted
// and reports how many entries it touched.
func (m *manifest) tombstone(docID int64) int {
	touched := 0
	for i := range m.entries {
		if m.entries[i].DocID == docID && !m.entries[i].Deleted {
			m.entries[i].Deleted = true
			touched++
		}
	}
	return touched
}

// live reports the number of non-tombstoned entries.
func (m *manifest) live() int {
	n := 0
	for i := range m.entries {
		if !m.entries[i].Deleted {
			n++
		}
	}
	return n
}

// clear drops all entries.
func (m *manifest) clear() {
	m.entries = m.entries[:0]
}
