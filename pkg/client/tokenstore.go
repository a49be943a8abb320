package client

import (
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// TokenPair is the persisted credential set.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no credentials are stored.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenStore persists tokens across process restarts so a session can resume
// without a fresh login.
type TokenStore interface {
	Load() (TokenPair, error)
	Save(pair TokenPair) error
	Clear() error
}

var (
	authBucket = []byte("auth")
	tokensKey  = []byte("tokens")
)

// BoltTokenStore keeps the token pair in a local bbolt file.
type BoltTokenStore struct {
	db *bolt.DB
}

// NewBoltTokenStore opens (or creates) the token database at path.
func NewBoltTokenStore(path string) (*BoltTokenStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing token store: %w", err)
	}
	return &BoltTokenStore{db: db}, nil
}

// Load reads the stored token pair. A missing entry is an empty pair, not an error.
func (s *BoltTokenStore) Load() (TokenPair, error) {
	var pair TokenPair
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(authBucket).Get(tokensKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &pair)
	})
	return pair, err
}

// Save stores the token pair.
func (s *BoltTokenStore) Save(pair TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(tokensKey, raw)
	})
}

// Clear removes any stored tokens.
func (s *BoltTokenStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Delete(tokensKey)
	})
}

// Close closes the underlying database.
func (s *BoltTokenStore) Close() error {
	return s.db.Close()
}

// MemoryTokenStore is an in-memory TokenStore for tests and throwaway sessions.
type MemoryTokenStore struct {
	mu   sync.Mutex
	pair TokenPair
}

func (s *MemoryTokenStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

func (s *MemoryTokenStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	return nil
}
