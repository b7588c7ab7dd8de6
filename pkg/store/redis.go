package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// DefaultRedisPrefix namespaces diagram records in a shared database.
const DefaultRedisPrefix = "planmap:diagram:"

// maxTxAttempts bounds optimistic retries of revisioned writes when a
// WATCHed key changes. Unconditional writes retry until they land or ctx
// is done.
const maxTxAttempts = 3

// Redis stores each record as a JSON string.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedis wraps an existing client. Close does not close it.
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// DialRedis connects to url (redis:// URL or host:port) and pings it.
func DialRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Redis{rdb: rdb, prefix: DefaultRedisPrefix, owned: true}, nil
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Create(ctx context.Context, p diagram.Params, spec diagram.Document) (diagram.Diagram, error) {
	rec, err := newRecord(p, spec)
	if err != nil {
		return diagram.Diagram{}, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return diagram.Diagram{}, fmt.Errorf("marshal diagram: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.key(string(rec.ID)), data, 0).Result()
	if err != nil {
		return diagram.Diagram{}, err
	}
	if !ok {
		return diagram.Diagram{}, fmt.Errorf("diagram id collision: %s", rec.ID)
	}
	return rec, nil
}

func (r *Redis) Get(ctx context.Context, id string) (diagram.Diagram, error) {
	return r.get(ctx, r.rdb, id)
}

func (r *Redis) get(ctx context.Context, c redis.Cmdable, id string) (diagram.Diagram, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return diagram.Diagram{}, ErrNotFound
	}
	if err != nil {
		return diagram.Diagram{}, err
	}
	var rec diagram.Diagram
	if err := json.Unmarshal(data, &rec); err != nil {
		return diagram.Diagram{}, fmt.Errorf("parse diagram %s: %w", id, err)
	}
	rec.Spec = rec.Spec.Clone()
	return rec, nil
}

func (r *Redis) Update(ctx context.Context, id string, spec diagram.Document, rev int64) (diagram.Diagram, error) {
	key := r.key(id)
	var out diagram.Diagram

	txf := func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := nextRevision(rec.Revision, rev)
		if err != nil {
			return err
		}
		rec.Spec = spec.Clone()
		rec.Revision = next
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal diagram: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			out = rec
		}
		return err
	}

	for attempt := 1; ; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return out, err
		}
		if err := ctx.Err(); err != nil {
			return diagram.Diagram{}, err
		}
		if rev > 0 && attempt >= maxTxAttempts {
			return diagram.Diagram{}, perrors.Wrap(perrors.ErrCodeInternal, err, "update diagram %s: write contention", id)
		}
	}
}

func (r *Redis) Close() error {
	if r.owned {
		return r.rdb.Close()
	}
	return nil
}

var _ Store = (*Redis)(nil)
