// Package storage keeps the raw bytes of uploaded evidentiary documents.
// Callers seal bytes before storing them; stores never interpret content.
package storage

import (
	"context"
	"errors"
)

// ErrDocumentNotFound means the bytes behind a location could not be read
// back. Integrity is then unknown rather than failed.
var ErrDocumentNotFound = errors.New("storage: document not found")

// ErrDocumentExists is returned when a name is already taken.
var ErrDocumentExists = errors.New("storage: document already exists")

// DocumentStore stores documents under unique names and reads them back by
// the location Put returned.
type DocumentStore interface {
	Put(ctx context.Context, name string, body []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
}
