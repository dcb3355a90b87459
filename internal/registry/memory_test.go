package registry

import (
	"bytes"
	"context"
	"testing"

	"github.com/juju/errors"
)

func downloadValues(name string) Values {
	return Values{
		DisplayName:  name,
		MimeType:     "application/pdf",
		RelativePath: DirectoryDownloads,
		Collection:   CollectionDownloads,
	}
}

func TestMemory_InsertWriteRead(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	ref, err := reg.Insert(ctx, downloadValues("statement.pdf"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !IsReference(ref) {
		t.Errorf("Expected registry reference, got %s", ref)
	}

	entry, err := reg.Lookup(ctx, ref)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !entry.Pending {
		t.Error("Expected entry to be pending before the writer is closed")
	}

	if _, err := reg.Read(ctx, ref); !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected NotFound reading a pending entry, got %v", err)
	}

	w, err := reg.OpenWriter(ctx, ref)
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	content := []byte("%PDF-1.7 statement")
	if _, err := w.Write(content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := reg.Read(ctx, ref)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Expected %q, got %q", content, got)
	}

	entry, err = reg.Lookup(ctx, ref)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Pending {
		t.Error("Expected entry to be committed")
	}
	if entry.Size != int64(len(content)) {
		t.Errorf("Expected size %d, got %d", len(content), entry.Size)
	}
	if entry.DisplayName != "statement.pdf" {
		t.Errorf("Expected display name statement.pdf, got %s", entry.DisplayName)
	}
}

func TestMemory_InsertInvalid(t *testing.T) {
	reg := NewMemory()

	_, err := reg.Insert(context.Background(), Values{Collection: CollectionDownloads})
	if !errors.Is(err, errors.NotValid) {
		t.Errorf("Expected NotValid for empty display name, got %v", err)
	}
}

func TestMemory_OpenWriter_UnknownEntry(t *testing.T) {
	reg := NewMemory()

	_, err := reg.OpenWriter(context.Background(), Reference(99))
	if !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}

	_, err = reg.OpenWriter(context.Background(), "/tmp/not-a-reference")
	if !errors.Is(err, errors.NotValid) {
		t.Errorf("Expected NotValid, got %v", err)
	}
}

func TestMemory_CloseAfterDelete(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	ref, err := reg.Insert(ctx, downloadValues("gone.pdf"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	w, err := reg.OpenWriter(ctx, ref)
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if err := reg.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if err := w.Close(); err == nil {
		t.Error("Expected error committing a deleted entry, got nil")
	}
}

func TestMemory_List(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := reg.Insert(ctx, downloadValues(name)); err != nil {
			t.Fatalf("Insert %s failed: %v", name, err)
		}
	}
	if _, err := reg.Insert(ctx, Values{DisplayName: "x.png", Collection: "images"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	entries := reg.List(CollectionDownloads)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].DisplayName != "c.pdf" {
		t.Errorf("Expected newest entry c.pdf first, got %s", entries[0].DisplayName)
	}
}

func TestParseReference(t *testing.T) {
	id, err := ParseReference(Reference(42))
	if err != nil {
		t.Fatalf("ParseReference failed: %v", err)
	}
	if id != 42 {
		t.Errorf("Expected id 42, got %d", id)
	}

	for _, ref := range []string{"", "content://media/external_primary/downloads/", "content://media/external_primary/downloads/-3", "file:///x"} {
		if _, err := ParseReference(ref); err == nil {
			t.Errorf("Expected error for %q, got nil", ref)
		}
	}
}

func TestMemory_AbortDiscardsContent(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	ref, err := reg.Insert(ctx, downloadValues("partial.pdf"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	w, err := reg.OpenWriter(ctx, ref)
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if _, err := w.Write([]byte("half")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	// Close after Abort must not commit
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := reg.Read(ctx, ref); !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected NotFound for aborted entry, got %v", err)
	}
	entry, err := reg.Lookup(ctx, ref)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !entry.Pending || entry.Size != 0 {
		t.Errorf("Expected pending empty entry, got pending=%v size=%d", entry.Pending, entry.Size)
	}
}
