package integrity

import (
	"errors"
	"testing"
	"time"
)

func sampleFields() RecordFields {
	return RecordFields{
		EntityType: "transaction",
		EntityID:   "T1",
		Action:     "create",
		ActorID:    "U1",
		Diff:       []byte(`{"amount":500}`),
		CreatedAt:  time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC),
	}
}

func TestRecordHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		h1, err := RecordHash(sampleFields())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		h2, _ := RecordHash(sampleFields())
		if h1 != h2 {
			t.Fatal("expected identical hashes")
		}
		if !IsDigest(h1) {
			t.Errorf("expected hex digest, got %q", h1)
		}
	})

	t.Run("sub_microsecond_ignored", func(t *testing.T) {
		f := sampleFields()
		f.CreatedAt = f.CreatedAt.Truncate(time.Microsecond)
		h1, _ := RecordHash(f)
		f.CreatedAt = f.CreatedAt.Add(789 * time.Nanosecond)
		h2, _ := RecordHash(f)
		if h1 != h2 {
			t.Error("expected nanoseconds below microsecond precision to be ignored")
		}
	})

	t.Run("timezone_ignored", func(t *testing.T) {
		f := sampleFields()
		h1, _ := RecordHash(f)
		f.CreatedAt = f.CreatedAt.In(time.FixedZone("IST", 5*3600+1800))
		h2, _ := RecordHash(f)
		if h1 != h2 {
			t.Error("expected the same instant in another zone to hash identically")
		}
	})

	t.Run("each_field_covered", func(t *testing.T) {
		base, _ := RecordHash(sampleFields())
		mutations := map[string]func(*RecordFields){
			"entity_type": func(f *RecordFields) { f.EntityType = "vendor" },
			"entity_id":   func(f *RecordFields) { f.EntityID = "T2" },
			"action":      func(f *RecordFields) { f.Action = "update" },
			"actor_id":    func(f *RecordFields) { f.ActorID = "U2" },
			"diff":        func(f *RecordFields) { f.Diff = []byte(`{"amount":600}`) },
			"created_at":  func(f *RecordFields) { f.CreatedAt = f.CreatedAt.Add(time.Microsecond) },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				f := sampleFields()
				mutate(&f)
				h, err := RecordHash(f)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if h == base {
					t.Error("expected hash to change")
				}
			})
		}
	})

	t.Run("empty_diff_is_empty_object", func(t *testing.T) {
		f := sampleFields()
		f.Diff = nil
		h1, _ := RecordHash(f)
		f.Diff = []byte("{}")
		h2, _ := RecordHash(f)
		if h1 != h2 {
			t.Error("expected nil diff to hash as {}")
		}
	})

	t.Run("non_canonical_diff_rejected", func(t *testing.T) {
		for _, diff := range []string{`{ "amount" : 500 }`, `{"b":1,"a":2}`, "{\"amount\":500}\n"} {
			f := sampleFields()
			f.Diff = []byte(diff)
			if _, err := RecordHash(f); !errors.Is(err, ErrNonCanonicalDiff) {
				t.Errorf("diff %q: expected ErrNonCanonicalDiff, got %v", diff, err)
			}
		}
	})

	t.Run("malformed_diff", func(t *testing.T) {
		f := sampleFields()
		f.Diff = []byte(`{"amount":`)
		_, err := RecordHash(f)
		if !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("expected ErrMalformedJSON, got %v", err)
		}
	})
}

func TestCanonicalDiff(t *testing.T) {
	t.Run("nil_is_empty_object", func(t *testing.T) {
		b, err := CanonicalDiff(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "{}" {
			t.Errorf("expected {}, got %s", b)
		}
	})

	t.Run("keys_sorted", func(t *testing.T) {
		b, err := CanonicalDiff(map[string]interface{}{"b": 1, "a": "x<y"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"a":"x<y","b":1}` {
			t.Errorf("unexpected canonical form: %s", b)
		}
	})

	t.Run("struct_fields_sorted", func(t *testing.T) {
		type snapshot struct {
			Name   string `json:"name"`
			Amount int64  `json:"amount"`
		}
		b, err := CanonicalDiff(snapshot{Name: "n", Amount: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"amount":5,"name":"n"}` {
			t.Errorf("unexpected canonical form: %s", b)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first, _ := CanonicalDiff(map[string]interface{}{"z": []int{3, 1}, "a": 1.5})
		second, err := CanonicalizeJSON(first)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("expected stable output, got %s then %s", first, second)
		}
	})

	t.Run("large_integers_preserved", func(t *testing.T) {
		b, err := CanonicalizeJSON([]byte(`{"amount": 9007199254740993}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"amount":9007199254740993}` {
			t.Errorf("expected integer preserved, got %s", b)
		}
	})

	t.Run("trailing_data_rejected", func(t *testing.T) {
		_, err := CanonicalizeJSON([]byte(`{} {}`))
		if !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("expected ErrMalformedJSON, got %v", err)
		}
	})
}
