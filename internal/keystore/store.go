// Package keystore provisions and serves the per-actor RSA keypairs used to
// attest transactions.
package keystore

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trustledger/internal/models"
)

// ErrKeyNotFound is returned when no keypair exists for an actor.
var ErrKeyNotFound = errors.New("keystore: signing key not found")

// Store persists signing keys. Insert must be atomic insert-if-absent: it
// never replaces an existing row and reports whether this call created one.
type Store interface {
	Get(ctx context.Context, actorID string) (*models.SigningKey, error)
	Insert(ctx context.Context, key *models.SigningKey) (bool, error)
}

// GormStore keeps keys in the signing_keys table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, actorID string) (*models.SigningKey, error) {
	var key models.SigningKey
	if err := s.db.WithContext(ctx).First(&key, "actor_id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (s *GormStore) Insert(ctx context.Context, key *models.SigningKey) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}},
			DoNothing: true,
		}).
		Create(key)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]models.SigningKey
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]models.SigningKey)}
}

func (s *MemoryStore) Get(_ context.Context, actorID string) (*models.SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[actorID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &key, nil
}

func (s *MemoryStore) Insert(_ context.Context, key *models.SigningKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key.ActorID]; ok {
		return false, nil
	}
	s.keys[key.ActorID] = *key
	return true, nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
