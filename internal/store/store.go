// Package store persists scenarios in an embedded bbolt database keyed by
// scenario id, backing the save/load/delete/export/import operations of the
// API server and CLI.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"github.com/eyadsibai/worth-it-sub001/internal/config"
)

var bucketScenarios = []byte("scenarios")

// Sentinel errors for store failures.
var (
	ErrScenarioNotFound = errors.New("store: scenario not found")
	ErrEmptyScenarioID  = errors.New("store: scenario id must not be empty")
)

// Store wraps a bbolt database for scenario persistence.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt database at dbPath. The parent directory
// is created if it does not exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketScenarios)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save persists a scenario, assigning an id when the record carries none.
// Saving an existing id overwrites the stored scenario.
func (s *Store) Save(scenario *config.Scenario) (string, error) {
	if scenario == nil {
		return "", fmt.Errorf("store: scenario must not be nil")
	}
	if scenario.ID == "" {
		scenario.ID = uuid.NewString()
	}

	data, err := json.Marshal(scenario)
	if err != nil {
		return "", fmt.Errorf("store: encode scenario: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketScenarios).Put([]byte(scenario.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("store: put scenario: %w", err)
	}
	return scenario.ID, nil
}

// Load retrieves a scenario by id.
func (s *Store) Load(id string) (*config.Scenario, error) {
	if id == "" {
		return nil, ErrEmptyScenarioID
	}

	var scenario config.Scenario
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketScenarios).Get([]byte(id))
		if data == nil {
			return ErrScenarioNotFound
		}
		if err := json.Unmarshal(data, &scenario); err != nil {
			return fmt.Errorf("store: decode scenario: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Delete removes a scenario by id.
func (s *Store) Delete(id string) error {
	if id == "" {
		return ErrEmptyScenarioID
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketScenarios)
		if b.Get([]byte(id)) == nil {
			return ErrScenarioNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Entry summarizes one stored scenario for listings.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List returns summaries of all stored scenarios.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketScenarios).ForEach(func(k, v []byte) error {
			var scenario config.Scenario
			if err := json.Unmarshal(v, &scenario); err != nil {
				return fmt.Errorf("store: decode scenario %s in list: %w", k, err)
			}
			entries = append(entries, Entry{ID: scenario.ID, Name: scenario.Name})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Export returns a stored scenario serialized as YAML, suitable for
// download and later re-import.
func (s *Store) Export(id string) ([]byte, error) {
	scenario, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(scenario)
	if err != nil {
		return nil, fmt.Errorf("store: encode scenario yaml: %w", err)
	}
	return data, nil
}

// Import parses a YAML scenario and saves it, returning the assigned id.
func (s *Store) Import(data []byte) (string, error) {
	var scenario config.Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return "", fmt.Errorf("store: decode scenario yaml: %w", err)
	}
	return s.Save(&scenario)
}
