package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Record is the stored outcome of an idempotent request. A record with Pending set belongs to a
// request that is still in flight. Fingerprint identifies the request payload the key was first
// used with.
type Record struct {
	Pending     bool            `json:"pending,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Matches reports whether fingerprint belongs to the request that created r. Records written
// without a fingerprint match anything.
func (r Record) Matches(fingerprint string) bool {
	return r.Fingerprint == "" || r.Fingerprint == fingerprint
}

// Idempotency stores request outcomes keyed by the client-supplied Idempotency-Key.
type Idempotency struct {
	rdb redis.Cmdable
}

func NewIdempotency(rdb redis.Cmdable) *Idempotency {
	return &Idempotency{rdb: rdb}
}

// Begin claims key for the request identified by fingerprint. When another request already claimed
// it, the stored record is returned with claimed == false.
func (i *Idempotency) Begin(ctx context.Context, key, fingerprint string) (rec Record, claimed bool, err error) {
	pending, err := json.Marshal(Record{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return Record{}, false, err
	}
	ok, err := i.rdb.SetNX(ctx, key, pending, TTLPending).Result()
	if err != nil {
		return Record{}, false, err
	}
	if ok {
		return Record{}, true, nil
	}

	raw, err := i.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; treat as in flight and let the client retry.
			return Record{Pending: true, Fingerprint: fingerprint}, false, nil
		}
		return Record{}, false, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec, false, nil
}

// Finish stores the final response for key.
func (i *Idempotency) Finish(ctx context.Context, key, fingerprint string, statusCode int, body []byte) error {
	raw, err := json.Marshal(Record{Fingerprint: fingerprint, StatusCode: statusCode, Body: body})
	if err != nil {
		return err
	}
	return i.rdb.Set(ctx, key, raw, TTLIdempotency).Err()
}

// Release forgets key so the client may retry, used when the request failed for a transient reason.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, key).Err()
}
