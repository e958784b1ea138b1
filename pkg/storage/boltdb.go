package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/switchback-run/switchback/pkg/types"
)

var (
	bucketDeployments = []byte("deployments")
)

// BoltStore implements Store using BoltDB. Bolt takes an exclusive file
// lock on open, which doubles as the mutual-exclusion primitive between
// concurrent controller invocations for the same state directory: a second
// process fails to open within the lock timeout instead of racing.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the state database in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "switchback.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database (another switchback running?): %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDeployments); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketDeployments, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database and releases the file lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveDeployment persists deployment state keyed by environment
func (s *BoltStore) SaveDeployment(state *types.DeploymentState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return b.Put([]byte(state.Environment), data)
	})
}

// GetDeployment retrieves the deployment state for an environment
func (s *BoltStore) GetDeployment(environment string) (*types.DeploymentState, error) {
	var state types.DeploymentState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		data := b.Get([]byte(environment))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteDeployment removes the state marker for an environment
func (s *BoltStore) DeleteDeployment(environment string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		return b.Delete([]byte(environment))
	})
}

// ListDeployments returns deployment state for all environments
func (s *BoltStore) ListDeployments() ([]*types.DeploymentState, error) {
	var states []*types.DeploymentState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		return b.ForEach(func(k, v []byte) error {
			var state types.DeploymentState
			if err := json.Unmarshal(v, &state); err != nil {
				return err
			}
			states = append(states, &state)
			return nil
		})
	})
	return states, err
}
