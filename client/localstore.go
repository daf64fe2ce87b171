package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/21Gxme/Agnos/models"
)

// LocalStore is the cascade's last tier: a JSON file holding an ordered list
// of records, keyed implicitly by ID. It is never reconciled back to the
// server automatically; it only guarantees the submitter's input survives a
// total outage. Every action is a read-modify-write of the whole file.
type LocalStore struct {
	Path string
}

func NewLocalStore(path string) *LocalStore {
	return &LocalStore{Path: path}
}

// Load reads the stored records. A missing file is an empty list.
func (s *LocalStore) Load() ([]models.Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var recs []models.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Put inserts or replaces a record by ID. An update for a record the local
// list has never seen is stored as an insert, so offline edits are never
// silently dropped.
func (s *LocalStore) Put(rec models.Record) error {
	recs, err := s.Load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.Path, data, 0o644)
}
