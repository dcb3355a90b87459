package redis

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"

	"download-sink/internal/models"
	"download-sink/internal/registry"
)

// Key patterns:
//   - downloads:seq - String counter allocating entry ids
//   - downloads:entry:{id} - Hash with entry columns
//   - downloads:content:{id} - String with the committed bytes
//   - downloads:collection:{name} - Sorted Set of ids scored by creation time
const seqKey = "downloads:seq"

func entryKey(id int64) string {
	return fmt.Sprintf("downloads:entry:%d", id)
}

func contentKey(id int64) string {
	return fmt.Sprintf("downloads:content:%d", id)
}

func collectionKey(name string) string {
	return fmt.Sprintf("downloads:collection:%s", name)
}

var _ registry.Registry = (*Client)(nil)

// Insert allocates a new pending entry
func (c *Client) Insert(ctx context.Context, values registry.Values) (string, error) {
	if err := values.Validate(); err != nil {
		return "", errors.Trace(err)
	}

	id, err := c.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return "", errors.Annotate(err, "failed to allocate entry id")
	}
	createdAt := c.now()

	// Use transaction for atomicity
	pipe := c.rdb.TxPipeline()

	pipe.HSet(ctx, entryKey(id), map[string]interface{}{
		"display_name":  values.DisplayName,
		"mime_type":     values.MimeType,
		"relative_path": values.RelativePath,
		"collection":    values.Collection,
		"pending":       "1",
		"size":          0,
		"created_at":    createdAt.Format(time.RFC3339Nano),
	})

	pipe.ZAdd(ctx, collectionKey(values.Collection), redis.Z{
		Score:  float64(createdAt.UnixNano()),
		Member: id,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return "", errors.Annotate(err, "failed to store entry")
	}

	logger.Debugf("registered entry %d (%s) in %s", id, values.DisplayName, values.Collection)
	return registry.Reference(id), nil
}

// OpenWriter opens a writer for the entry. Bytes are buffered and committed
// in one transaction on Close.
func (c *Client) OpenWriter(ctx context.Context, ref string) (registry.Writer, error) {
	id, err := registry.ParseReference(ref)
	if err != nil {
		return nil, errors.Trace(err)
	}

	n, err := c.rdb.Exists(ctx, entryKey(id)).Result()
	if err != nil {
		return nil, errors.Annotate(err, "failed to check entry")
	}
	if n == 0 {
		return nil, errors.NotFoundf("registry entry %d", id)
	}

	return &writer{ctx: ctx, client: c, id: id}, nil
}

// Read returns the committed content of an entry
func (c *Client) Read(ctx context.Context, ref string) ([]byte, error) {
	entry, err := c.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if entry.Pending {
		return nil, errors.NotFoundf("content of pending registry entry %d", entry.ID)
	}

	data, err := c.rdb.Get(ctx, contentKey(entry.ID)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFoundf("content of registry entry %d", entry.ID)
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to get content")
	}
	return data, nil
}

// Lookup retrieves the entry columns
func (c *Client) Lookup(ctx context.Context, ref string) (*models.Entry, error) {
	id, err := registry.ParseReference(ref)
	if err != nil {
		return nil, errors.Trace(err)
	}

	result := c.rdb.HGetAll(ctx, entryKey(id))
	if result.Err() != nil {
		return nil, errors.Annotate(result.Err(), "failed to get entry")
	}
	fields := result.Val()
	if len(fields) == 0 {
		return nil, errors.NotFoundf("registry entry %d", id)
	}

	return parseEntry(id, fields)
}

func parseEntry(id int64, fields map[string]string) (*models.Entry, error) {
	size, err := strconv.ParseInt(fields["size"], 10, 64)
	if err != nil {
		return nil, errors.Annotatef(err, "invalid size for entry %d", id)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, errors.Annotatef(err, "invalid created_at for entry %d", id)
	}

	return &models.Entry{
		ID:           id,
		Reference:    registry.Reference(id),
		DisplayName:  fields["display_name"],
		MimeType:     fields["mime_type"],
		RelativePath: fields["relative_path"],
		Collection:   fields["collection"],
		Pending:      fields["pending"] == "1",
		Size:         size,
		CreatedAt:    createdAt,
	}, nil
}

// Delete removes the entry, its content and its collection membership
func (c *Client) Delete(ctx context.Context, ref string) error {
	id, err := registry.ParseReference(ref)
	if err != nil {
		return errors.Trace(err)
	}

	collection, err := c.rdb.HGet(ctx, entryKey(id), "collection").Result()
	if err == redis.Nil {
		return errors.NotFoundf("registry entry %d", id)
	}
	if err != nil {
		return errors.Annotate(err, "failed to get entry")
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, entryKey(id), contentKey(id))
	pipe.ZRem(ctx, collectionKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Annotate(err, "failed to delete entry")
	}
	return nil
}

// List returns the references in a collection (newest first)
func (c *Client) List(ctx context.Context, collection string) ([]string, error) {
	ids, err := c.rdb.ZRevRange(ctx, collectionKey(collection), 0, -1).Result()
	if err != nil {
		return nil, errors.Annotate(err, "failed to list collection")
	}

	refs := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, registry.Reference(id))
	}
	return refs, nil
}

func (c *Client) commit(ctx context.Context, id int64, data []byte) error {
	// A Delete racing the commit aborts it.
	key := entryKey(id)
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NotFoundf("registry entry %d", id)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, contentKey(id), data, 0)
			pipe.HSet(ctx, key, "pending", "0", "size", len(data))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, errors.NotFound) {
		return err
	}
	if err != nil {
		return errors.Annotate(err, "failed to commit content")
	}
	return nil
}

// writer keeps the context of OpenWriter since io.Closer carries none.
type writer struct {
	ctx    context.Context
	client *Client
	id     int64
	buf    bytes.Buffer
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed registry writer")
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.client.commit(w.ctx, w.id, w.buf.Bytes())
}

// Abort drops the buffer without touching Redis
func (w *writer) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}
