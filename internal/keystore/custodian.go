package keystore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"trustledger/internal/integrity"
	"trustledger/internal/logger"
	"trustledger/internal/metrics"
	"trustledger/internal/models"
)

// ErrEmptyActor is returned when no actor ID is supplied.
var ErrEmptyActor = errors.New("keystore: actor ID is required")

// KeyPair is an actor's provisioned signing key. The private half is only
// reachable through the signing methods.
type KeyPair struct {
	ActorID      string
	Algorithm    string
	PublicKeyPEM string
	Fingerprint  string
	CreatedAt    time.Time

	privateKeyPEM string
}

func newKeyPair(k *models.SigningKey) *KeyPair {
	return &KeyPair{
		ActorID:       k.ActorID,
		Algorithm:     k.Algorithm,
		PublicKeyPEM:  k.PublicKeyPEM,
		Fingerprint:   k.Fingerprint,
		CreatedAt:     k.CreatedAt,
		privateKeyPEM: k.PrivateKeyPEM,
	}
}

// SignTransaction attests tx's canonical payload with this key.
func (k *KeyPair) SignTransaction(tx *models.Transaction) (string, error) {
	return integrity.SignTransaction(tx, k.privateKeyPEM)
}

// VerifyTransaction checks signatureHex against tx with this key's public half.
func (k *KeyPair) VerifyTransaction(tx *models.Transaction, signatureHex string) (bool, error) {
	return integrity.VerifyTransaction(tx, signatureHex, k.PublicKeyPEM)
}

// Option configures a Custodian.
type Option func(*Custodian)

// WithKeyBits sets the RSA modulus size for new keys. Values below
// integrity.MinKeyBits are raised to the minimum.
func WithKeyBits(bits int) Option {
	return func(c *Custodian) {
		if bits < integrity.MinKeyBits {
			bits = integrity.MinKeyBits
		}
		c.bits = bits
	}
}

// WithConcurrency bounds how many keys are generated at once.
func WithConcurrency(n int64) Option {
	return func(c *Custodian) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithTimeout bounds a single provisioning run, including the wait for a
// generation slot.
func WithTimeout(d time.Duration) Option {
	return func(c *Custodian) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRandom sets the entropy source for key generation.
func WithRandom(r io.Reader) Option {
	return func(c *Custodian) { c.random = r }
}

// Custodian hands out exactly one keypair per actor, generating it on first
// use. Concurrent first-use calls in this process share one generation; calls
// racing from other processes are settled by Store.Insert.
type Custodian struct {
	store   Store
	bits    int
	timeout time.Duration
	random  io.Reader
	sem     *semaphore.Weighted
	group   singleflight.Group
}

// NewCustodian creates a Custodian over store.
func NewCustodian(store Store, opts ...Option) *Custodian {
	c := &Custodian{
		store:   store,
		bits:    integrity.MinKeyBits,
		timeout: 30 * time.Second,
		sem:     semaphore.NewWeighted(2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the actor's keypair without creating one.
func (c *Custodian) Get(ctx context.Context, actorID string) (*KeyPair, error) {
	if actorID == "" {
		return nil, ErrEmptyActor
	}
	key, err := c.store.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return newKeyPair(key), nil
}

// GetOrCreate returns the actor's keypair, provisioning it if absent. The
// returned pair is always the persisted one, so every caller for the same
// actor sees identical keys. Cancelling ctx abandons the wait but not the
// generation, which still completes and is stored for the next caller.
func (c *Custodian) GetOrCreate(ctx context.Context, actorID string) (*KeyPair, error) {
	pair, err := c.Get(ctx, actorID)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	ch := c.group.DoChan(actorID, func() (interface{}, error) {
		return c.provision(actorID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeyPair), nil
	}
}

func (c *Custodian) provision(actorID string) (*KeyPair, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if existing, err := c.store.Get(ctx, actorID); err == nil {
		return newKeyPair(existing), nil
	} else if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for key generation slot: %w", err)
	}
	start := time.Now()
	generated, err := integrity.GenerateRSAKeyPair(c.random, c.bits)
	c.sem.Release(1)
	metrics.KeygenDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	row := &models.SigningKey{
		ActorID:       actorID,
		Algorithm:     integrity.Algorithm,
		PublicKeyPEM:  generated.PublicKeyPEM,
		PrivateKeyPEM: generated.PrivateKeyPEM,
		Fingerprint:   generated.Fingerprint,
		CreatedAt:     time.Now().UTC(),
	}
	inserted, err := c.store.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("store signing key: %w", err)
	}
	if inserted {
		metrics.SigningKeysProvisionedTotal.Inc()
		logger.Named("keystore").Infow("provisioned signing key",
			"actor_id", actorID,
			"fingerprint", row.Fingerprint,
			"bits", c.bits,
		)
		return newKeyPair(row), nil
	}

	// Another process stored a key first; ours is discarded.
	winner, err := c.store.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return newKeyPair(winner), nil
}
