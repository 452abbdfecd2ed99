package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const defaultCacheTimeout = 2 * time.Second

// CacheBuilder assembles a single cache operation. Every operation is a no-op
// on a nil client so callers do not need to know whether caching is enabled.
type CacheBuilder struct {
	client      CacheClient
	key         string
	hashPattern string
	value       any
	ttl         time.Duration
	ctx         context.Context
}

func NewCacheBuilder(client CacheClient, key any) *CacheBuilder {
	return &CacheBuilder{
		client: client,
		key:    fmt.Sprint(key),
	}
}

func (b *CacheBuilder) WithStruct(value any) *CacheBuilder {
	b.value = value
	return b
}

func (b *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	b.ttl = ttl
	return b
}

func (b *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	b.ctx = ctx
	return b
}

// WithHashPattern formats the key, e.g. "template:%s".
func (b *CacheBuilder) WithHashPattern(pattern string) *CacheBuilder {
	b.hashPattern = pattern
	return b
}

func (b *CacheBuilder) Key() string {
	if b.hashPattern != "" {
		return fmt.Sprintf(b.hashPattern, b.key)
	}
	return b.key
}

func (b *CacheBuilder) context() (context.Context, context.CancelFunc) {
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultCacheTimeout)
}

func (b *CacheBuilder) Set() error {
	if b.client == nil {
		return nil
	}

	payload, err := json.Marshal(b.value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	ctx, cancel := b.context()
	defer cancel()

	var cmd valkey.Completed
	if b.ttl > 0 {
		cmd = b.client.B().Set().Key(b.Key()).Value(string(payload)).Ex(b.ttl).Build()
	} else {
		cmd = b.client.B().Set().Key(b.Key()).Value(string(payload)).Build()
	}

	return b.client.Do(ctx, cmd).Error()
}

// Get decodes the cached value into dest. found is false on a miss.
func (b *CacheBuilder) Get(dest any) (bool, error) {
	if b.client == nil {
		return false, nil
	}

	ctx, cancel := b.context()
	defer cancel()

	raw, err := b.client.Do(ctx, b.client.B().Get().Key(b.Key()).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return true, nil
}

func (b *CacheBuilder) Delete() error {
	if b.client == nil {
		return nil
	}

	ctx, cancel := b.context()
	defer cancel()

	return b.client.Do(ctx, b.client.B().Del().Key(b.Key()).Build()).Error()
}
