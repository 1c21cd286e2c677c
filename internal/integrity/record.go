package integrity

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// ErrNonCanonicalDiff is returned when a diff is valid JSON but not in the
// exact canonical text that is stored at write time.
var ErrNonCanonicalDiff = errors.New("integrity: diff is not canonical")

// TimestampLayout is the fixed-width UTC layout used inside record hashes.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// RecordFields are the audit record attributes covered by its hash.
// Diff must already be canonical JSON text (see CanonicalDiff); the hash
// covers those exact bytes.
type RecordFields struct {
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Diff       []byte
	CreatedAt  time.Time
}

// recordPayload fixes the field order of the hashed document.
type recordPayload struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actorId"`
	Diff       json.RawMessage `json:"diff"`
	CreatedAt  string          `json:"createdAt"`
}

// NormalizeTimestamp converts t to the precision every supported database
// round-trips losslessly. Apply it before hashing and before persisting.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// RecordHash returns SHA256(canonical({entityType, entityId, action,
// actorId, diff, createdAt})) as lowercase hex.
func RecordHash(f RecordFields) (string, error) {
	diff := f.Diff
	if len(diff) == 0 {
		diff = []byte("{}")
	}
	canon, err := CanonicalizeJSON(diff)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(canon, diff) {
		return "", ErrNonCanonicalDiff
	}

	b, err := Canonical(recordPayload{
		EntityType: f.EntityType,
		EntityID:   f.EntityID,
		Action:     f.Action,
		ActorID:    f.ActorID,
		Diff:       json.RawMessage(diff),
		CreatedAt:  NormalizeTimestamp(f.CreatedAt).Format(TimestampLayout),
	})
	if err != nil {
		return "", err
	}
	return Seal(b), nil
}
