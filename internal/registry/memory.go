package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"

	"download-sink/internal/models"
)

// Memory implements Registry in process memory
type Memory struct {
	mu      sync.Mutex
	seq     int64
	entries map[int64]*models.Entry
	content map[int64][]byte
	now     func() time.Time
}

// NewMemory creates an empty in-memory registry
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[int64]*models.Entry),
		content: make(map[int64][]byte),
		now:     time.Now,
	}
}

// Insert allocates a new pending entry
func (m *Memory) Insert(ctx context.Context, values Values) (string, error) {
	if err := values.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := m.seq
	m.entries[id] = &models.Entry{
		ID:           id,
		Reference:    Reference(id),
		DisplayName:  values.DisplayName,
		MimeType:     values.MimeType,
		RelativePath: values.RelativePath,
		Collection:   values.Collection,
		Pending:      true,
		CreatedAt:    m.now(),
	}
	return Reference(id), nil
}

// OpenWriter opens a buffered writer that commits on Close
func (m *Memory) OpenWriter(ctx context.Context, ref string) (Writer, error) {
	id, err := ParseReference(ref)
	if err != nil {
		return nil, errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return nil, errors.NotFoundf("registry entry %d", id)
	}
	return &memoryWriter{registry: m, id: id}, nil
}

// Read returns a copy of the committed content
func (m *Memory) Read(ctx context.Context, ref string) ([]byte, error) {
	id, err := ParseReference(ref)
	if err != nil {
		return nil, errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, errors.NotFoundf("registry entry %d", id)
	}
	if entry.Pending {
		return nil, errors.NotFoundf("content of pending registry entry %d", id)
	}
	return bytes.Clone(m.content[id]), nil
}

// Lookup returns a copy of the entry columns
func (m *Memory) Lookup(ctx context.Context, ref string) (*models.Entry, error) {
	id, err := ParseReference(ref)
	if err != nil {
		return nil, errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, errors.NotFoundf("registry entry %d", id)
	}
	clone := *entry
	return &clone, nil
}

// Delete removes the entry and its content
func (m *Memory) Delete(ctx context.Context, ref string) error {
	id, err := ParseReference(ref)
	if err != nil {
		return errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return errors.NotFoundf("registry entry %d", id)
	}
	delete(m.entries, id)
	delete(m.content, id)
	return nil
}

// List returns the entries of a collection, newest first
func (m *Memory) List(collection string) []models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Entry
	for _, entry := range m.entries {
		if entry.Collection == collection {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *Memory) commit(id int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return errors.NotFoundf("registry entry %d", id)
	}
	m.content[id] = data
	entry.Pending = false
	entry.Size = int64(len(data))
	return nil
}

type memoryWriter struct {
	registry *Memory
	id       int64
	buf      bytes.Buffer
	closed   bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed registry writer")
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.registry.commit(w.id, w.buf.Bytes())
}

func (w *memoryWriter) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}
