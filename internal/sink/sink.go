// Package sink persists a named byte buffer to a public Downloads location.
//
// Two strategies exist. A RegistrySink writes through a mediated downloads
// registry and returns the entry reference. A DirectFileSink writes straight
// to <downloads-root>/<subdir>/<filename> and returns the absolute path. Which
// one a process uses is decided once at startup, see New.
//
// Sinks never log and never retry; callers at the call boundary do that.
package sink

import (
	"context"
	"strings"

	"github.com/juju/errors"
)

const (
	// IOFailure marks any inability to create or write the destination.
	IOFailure = errors.ConstError("io failure")
	// InvalidArgument marks a request that cannot be saved as given.
	InvalidArgument = errors.ConstError("invalid argument")
)

// DefaultMimeType is the content type registry entries are created with
// unless configured otherwise.
const DefaultMimeType = "application/pdf"

// DefaultSubdir is the application namespace directory under the public
// Downloads root.
const DefaultSubdir = "PayHive"

// SaveRequest is one file to persist
type SaveRequest struct {
	Filename string
	Content  []byte
}

// Validate rejects empty filenames and anything that could escape the
// destination directory.
func (r SaveRequest) Validate() error {
	if r.Filename == "" {
		return errors.WithType(errors.New("filename is required"), InvalidArgument)
	}
	if r.Filename == "." || r.Filename == ".." ||
		strings.ContainsAny(r.Filename, "/\\\x00") {
		return errors.WithType(errors.NotValidf("filename %q", r.Filename), InvalidArgument)
	}
	return nil
}

// SaveResult identifies where content landed: an absolute path or a
// registry reference. Callers treat it as opaque.
type SaveResult string

func (r SaveResult) String() string { return string(r) }

// Artifact is content read back from a location
type Artifact struct {
	Name     string
	MimeType string
	Content  []byte
}

// DownloadSink persists content to the public Downloads area
type DownloadSink interface {
	// Save writes the full content and returns its location. A returned
	// location always denotes fully written content.
	Save(ctx context.Context, req SaveRequest) (SaveResult, error)
	// Get reads back content previously returned by Save
	Get(ctx context.Context, location SaveResult) (*Artifact, error)
	// Strategy names the storage strategy the sink implements
	Strategy() Strategy
}

func ioFailure(err error, message string) error {
	if err == nil {
		return errors.WithType(errors.New(message), IOFailure)
	}
	return errors.WithType(errors.Annotate(err, message), IOFailure)
}
