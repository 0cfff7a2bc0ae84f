package config

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/anamnesis/pkg/adapters/file"
	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/adapters/redis"
	"github.com/aretw0/anamnesis/pkg/adapters/sqlstore"
	"github.com/aretw0/anamnesis/pkg/persistence/middleware"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Backend is an opened session store with its optional distributed locker.
type Backend struct {
	Store  ports.SessionStore
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases every connection opened for the backend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenBackend builds the configured store, wraps it with the redaction and
// encryption middleware, and attaches the redis locker when enabled.
func (c Config) OpenBackend(ctx context.Context) (*Backend, error) {
	b := &Backend{}
	var client *backend.Client

	redisClient := func() *backend.Client {
		if client == nil {
			client = backend.NewClient(&backend.Options{
				Addr:     c.Store.Redis.Addr,
				Password: c.Store.Redis.Password,
				DB:       c.Store.Redis.DB,
			})
			b.closers = append(b.closers, client.Close)
		}
		return client
	}

	var store ports.SessionStore
	switch c.Store.Kind {
	case StoreMemory:
		store = memory.NewStore()
	case StoreFile:
		store = file.New(c.Store.Dir)
	case StoreRedis:
		store = redis.NewFromClient(redisClient(), redis.WithPrefix(c.Store.Redis.Prefix))
	case StoreSQLite, StorePostgres:
		s, err := sqlstore.Open(ctx, c.Store.Kind, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		store = s
	default:
		return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	var mws []middleware.Middleware
	if len(c.Security.RedactPatterns) > 0 {
		mw, err := middleware.NewRedactionMiddleware(c.Security.RedactPatterns)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	if c.Security.EncryptionKey != "" {
		mw, err := c.encryption()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	b.Store = middleware.Chain(store, mws...)

	if c.Store.Redis.Lock {
		cl := redisClient()
		if err := cl.Ping(ctx).Err(); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		b.Locker = redis.NewLocker(cl, c.Store.Redis.Prefix)
	}
	return b, nil
}

func (c Config) encryption() (middleware.Middleware, error) {
	active, err := middleware.ParseKey(c.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range c.Security.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}
