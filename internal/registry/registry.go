// Package registry describes the mediated public downloads catalog that
// registry-backed sinks write through. Entries are inserted first, then
// filled through a writer; an entry stays pending until its writer closes.
package registry

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"download-sink/internal/models"
)

const (
	// CollectionDownloads is the public Downloads collection.
	CollectionDownloads = "downloads"
	// DirectoryDownloads is the relative path entries of the Downloads
	// collection are placed under.
	DirectoryDownloads = "Download"

	referencePrefix = "content://media/external_primary/downloads/"
)

// Values are the columns supplied when inserting a new entry
type Values struct {
	DisplayName  string
	MimeType     string
	RelativePath string
	Collection   string
}

// Validate checks the values required by every backend
func (v Values) Validate() error {
	if v.DisplayName == "" {
		return errors.NotValidf("empty display name")
	}
	if v.Collection == "" {
		return errors.NotValidf("empty collection")
	}
	return nil
}

// Writer is the write channel of a pending entry. Close commits the buffered
// content; Abort discards it and leaves the entry pending. After either call
// further calls are no-ops.
type Writer interface {
	io.WriteCloser
	Abort() error
}

// Registry is the catalog a RegistrySink writes through
type Registry interface {
	// Insert allocates a new pending entry and returns its reference
	Insert(ctx context.Context, values Values) (string, error)
	// OpenWriter opens a write channel for the entry. Content becomes
	// visible, and the entry stops being pending, when the writer is closed.
	OpenWriter(ctx context.Context, ref string) (Writer, error)
	// Read returns the content of a committed entry
	Read(ctx context.Context, ref string) ([]byte, error)
	// Lookup returns the entry columns
	Lookup(ctx context.Context, ref string) (*models.Entry, error)
	// Delete removes the entry and its content
	Delete(ctx context.Context, ref string) error
}

// Reference formats the opaque reference for an entry id
func Reference(id int64) string {
	return fmt.Sprintf("%s%d", referencePrefix, id)
}

// ParseReference extracts the entry id from a reference
func ParseReference(ref string) (int64, error) {
	raw, ok := strings.CutPrefix(ref, referencePrefix)
	if !ok {
		return 0, errors.NotValidf("registry reference %q", ref)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NotValidf("registry reference %q", ref)
	}
	return id, nil
}

// IsReference reports whether location looks like a registry reference
func IsReference(location string) bool {
	return strings.HasPrefix(location, referencePrefix)
}
