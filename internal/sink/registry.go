package sink

import (
	"context"

	"github.com/juju/errors"

	"download-sink/internal/registry"
)

// RegistrySink implements DownloadSink on top of a mediated downloads
// registry.
type RegistrySink struct {
	registry registry.Registry
	mimeType string
}

// NewRegistrySink creates a sink registering entries with the given MIME
// type, DefaultMimeType when empty.
func NewRegistrySink(reg registry.Registry, mimeType string) *RegistrySink {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return &RegistrySink{registry: reg, mimeType: mimeType}
}

// Strategy implements DownloadSink
func (s *RegistrySink) Strategy() Strategy {
	return StrategyRegistry
}

// Save registers a new Downloads entry and writes the content through it.
// On any failure after registration the entry is removed again.
func (s *RegistrySink) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Trace(err)
	}

	ref, err := s.registry.Insert(ctx, registry.Values{
		DisplayName:  req.Filename,
		MimeType:     s.mimeType,
		RelativePath: registry.DirectoryDownloads,
		Collection:   registry.CollectionDownloads,
	})
	if err != nil {
		return "", ioFailure(err, "registration failed")
	}
	if ref == "" {
		return "", ioFailure(nil, "registration failed")
	}

	if err := s.write(ctx, ref, req.Content); err != nil {
		_ = s.registry.Delete(ctx, ref)
		return "", err
	}
	return SaveResult(ref), nil
}

func (s *RegistrySink) write(ctx context.Context, ref string, data []byte) error {
	w, err := s.registry.OpenWriter(ctx, ref)
	if err != nil {
		return ioFailure(err, "stream open failed")
	}
	if w == nil {
		return ioFailure(nil, "stream open failed")
	}

	// A failed write is aborted, never committed. The entry stays pending.
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return ioFailure(err, "failed to write stream")
	}
	if err := w.Close(); err != nil {
		return ioFailure(err, "failed to close stream")
	}
	return nil
}

// Get reads back a committed registry entry
func (s *RegistrySink) Get(ctx context.Context, location SaveResult) (*Artifact, error) {
	ref := string(location)
	if !registry.IsReference(ref) {
		return nil, errors.WithType(errors.NotValidf("location %q", location), InvalidArgument)
	}

	entry, err := s.registry.Lookup(ctx, ref)
	if err != nil {
		return nil, errors.Trace(err)
	}
	data, err := s.registry.Read(ctx, ref)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Artifact{Name: entry.DisplayName, MimeType: entry.MimeType, Content: data}, nil
}
