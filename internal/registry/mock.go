package registry

import (
	"context"
	"io"

	"download-sink/internal/models"
)

// MockRegistry is a mock implementation of Registry for testing
type MockRegistry struct {
	InsertFunc     func(ctx context.Context, values Values) (string, error)
	OpenWriterFunc func(ctx context.Context, ref string) (Writer, error)
	ReadFunc       func(ctx context.Context, ref string) ([]byte, error)
	LookupFunc     func(ctx context.Context, ref string) (*models.Entry, error)
	DeleteFunc     func(ctx context.Context, ref string) error
}

func (m *MockRegistry) Insert(ctx context.Context, values Values) (string, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, values)
	}
	return Reference(1), nil
}

func (m *MockRegistry) OpenWriter(ctx context.Context, ref string) (Writer, error) {
	if m.OpenWriterFunc != nil {
		return m.OpenWriterFunc(ctx, ref)
	}
	return nopWriteCloser{io.Discard}, nil
}

func (m *MockRegistry) Read(ctx context.Context, ref string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, ref)
	}
	return nil, nil
}

func (m *MockRegistry) Lookup(ctx context.Context, ref string) (*models.Entry, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, ref)
	}
	return &models.Entry{Reference: ref}, nil
}

func (m *MockRegistry) Delete(ctx context.Context, ref string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ref)
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (nopWriteCloser) Abort() error { return nil }
