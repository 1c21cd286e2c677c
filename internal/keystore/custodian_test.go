package keystore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trustledger/internal/models"
	"trustledger/internal/testutil"
)

func TestCustodianGetOrCreate(t *testing.T) {
	t.Run("sequential_calls_idempotent", func(t *testing.T) {
		c := NewCustodian(NewMemoryStore())
		first, err := c.GetOrCreate(context.Background(), "U2")
		testutil.AssertNoError(t, err)
		second, err := c.GetOrCreate(context.Background(), "U2")
		testutil.AssertNoError(t, err)

		if first.PublicKeyPEM != second.PublicKeyPEM {
			t.Error("expected identical public keys")
		}
		if first.privateKeyPEM != second.privateKeyPEM {
			t.Error("expected identical private keys")
		}
	})

	t.Run("distinct_actors_distinct_keys", func(t *testing.T) {
		c := NewCustodian(NewMemoryStore())
		u2, err := c.GetOrCreate(context.Background(), "U2")
		testutil.AssertNoError(t, err)
		u3, err := c.GetOrCreate(context.Background(), "U3")
		testutil.AssertNoError(t, err)

		if u2.PublicKeyPEM == u3.PublicKeyPEM {
			t.Error("expected different keypairs for different actors")
		}
	})

	t.Run("concurrent_first_use_converges", func(t *testing.T) {
		store := NewMemoryStore()
		c := NewCustodian(store)

		const callers = 16
		var wg sync.WaitGroup
		keys := make([]string, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pair, err := c.GetOrCreate(context.Background(), "U1")
				errs[i] = err
				if pair != nil {
					keys[i] = pair.PublicKeyPEM
				}
			}(i)
		}
		wg.Wait()

		for i := range keys {
			if errs[i] != nil {
				t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
			}
			if keys[i] != keys[0] {
				t.Fatalf("caller %d received a different key", i)
			}
		}
		if store.Len() != 1 {
			t.Errorf("expected 1 stored key, got %d", store.Len())
		}
	})

	t.Run("racing_custodians_share_store", func(t *testing.T) {
		// Two custodians model two processes sharing one database.
		store := NewMemoryStore()
		a := NewCustodian(store)
		b := NewCustodian(store)

		var wg sync.WaitGroup
		var ka, kb *KeyPair
		var ea, eb error
		wg.Add(2)
		go func() { defer wg.Done(); ka, ea = a.GetOrCreate(context.Background(), "U1") }()
		go func() { defer wg.Done(); kb, eb = b.GetOrCreate(context.Background(), "U1") }()
		wg.Wait()

		testutil.AssertNoError(t, ea)
		testutil.AssertNoError(t, eb)
		if ka.PublicKeyPEM != kb.PublicKeyPEM {
			t.Error("expected both custodians to converge on the stored key")
		}
		if store.Len() != 1 {
			t.Errorf("expected 1 stored key, got %d", store.Len())
		}
	})

	t.Run("abandoned_wait_still_provisions", func(t *testing.T) {
		store := NewMemoryStore()
		c := NewCustodian(store)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.GetOrCreate(ctx, "U4")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		pair, err := c.GetOrCreate(context.Background(), "U4")
		testutil.AssertNoError(t, err)
		if pair.PublicKeyPEM == "" {
			t.Error("expected a provisioned key")
		}
		if store.Len() != 1 {
			t.Errorf("expected 1 stored key, got %d", store.Len())
		}
	})

	t.Run("empty_actor", func(t *testing.T) {
		c := NewCustodian(NewMemoryStore())
		_, err := c.GetOrCreate(context.Background(), "")
		if !errors.Is(err, ErrEmptyActor) {
			t.Errorf("expected ErrEmptyActor, got %v", err)
		}
	})
}

func TestCustodianGet(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		c := NewCustodian(NewMemoryStore())
		_, err := c.Get(context.Background(), "nobody")
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("does_not_create", func(t *testing.T) {
		store := NewMemoryStore()
		c := NewCustodian(store)
		_, _ = c.Get(context.Background(), "U1")
		if store.Len() != 0 {
			t.Error("expected Get not to provision a key")
		}
	})
}

func TestKeyPairSignsTransactions(t *testing.T) {
	c := NewCustodian(NewMemoryStore())
	u1, err := c.GetOrCreate(context.Background(), "U1")
	testutil.AssertNoError(t, err)
	u2, err := c.GetOrCreate(context.Background(), "U2")
	testutil.AssertNoError(t, err)

	tx := &models.Transaction{ProjectID: "P1", VendorID: "V1", Amount: 500, DocumentHash: "d1"}
	tx.ID = "T1"

	sig, err := u1.SignTransaction(tx)
	testutil.AssertNoError(t, err)

	ok, err := u1.VerifyTransaction(tx, sig)
	testutil.AssertNoError(t, err)
	if !ok {
		t.Error("expected signer's key to verify")
	}

	ok, err = u2.VerifyTransaction(tx, sig)
	testutil.AssertNoError(t, err)
	if ok {
		t.Error("expected another actor's key to reject")
	}

	tx.Amount = 600
	ok, err = u1.VerifyTransaction(tx, sig)
	testutil.AssertNoError(t, err)
	if ok {
		t.Error("expected edited amount to fail verification")
	}
}
