package sink

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
)

// DirectFileSink implements DownloadSink with plain file handles under the
// public Downloads directory.
type DirectFileSink struct {
	dir string
}

// NewDirectFileSink creates a sink writing to <root>/<subdir>. An empty root
// resolves to the host Downloads directory. The directory itself is created
// lazily on the first save.
func NewDirectFileSink(root, subdir string) (*DirectFileSink, error) {
	if root == "" {
		resolved, err := DownloadsDir()
		if err != nil {
			return nil, errors.Annotate(err, "resolving downloads directory")
		}
		root = resolved
	}
	if subdir == "" {
		subdir = DefaultSubdir
	}

	dir, err := filepath.Abs(filepath.Join(root, subdir))
	if err != nil {
		return nil, errors.Annotatef(err, "resolving %s", subdir)
	}
	return &DirectFileSink{dir: dir}, nil
}

// Dir returns the directory saved files land in
func (s *DirectFileSink) Dir() string {
	return s.dir
}

// Strategy implements DownloadSink
func (s *DirectFileSink) Strategy() Strategy {
	return StrategyDirect
}

// Save writes the content to <dir>/<filename>, overwriting any
// existing file.
func (s *DirectFileSink) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Trace(err)
	}

	// MkdirAll is a no-op for an existing directory.
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", ioFailure(err, "failed to create directory")
	}

	filePath := filepath.Join(s.dir, req.Filename)
	if err := writeFile(filePath, req.Content); err != nil {
		return "", ioFailure(err, "failed to write file")
	}
	return SaveResult(filePath), nil
}

// writeFile truncates and writes path. The handle is closed on every path,
// and a close error is reported when nothing failed before it.
func writeFile(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Trace(cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(f.Sync())
}

// Get reads back a file saved by this sink. Paths outside the sink
// directory are rejected.
func (s *DirectFileSink) Get(ctx context.Context, location SaveResult) (*Artifact, error) {
	path := filepath.Clean(string(location))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || rel == ".." || strings.ContainsRune(rel, filepath.Separator) {
		return nil, errors.WithType(errors.NotValidf("location %q", location), InvalidArgument)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("file %s", rel)
	}
	if err != nil {
		return nil, ioFailure(err, "failed to read file")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(rel))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &Artifact{Name: rel, MimeType: mimeType, Content: data}, nil
}
