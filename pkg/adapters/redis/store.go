package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "anamnesis:"

// Store implements ports.SessionStore using Redis.
//
// Each consultation is a JSON string. Sorted sets scored by creation time index
// all consultations, and those of each patient and each doctor.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(id string) string        { return s.prefix + "consultation:" + id }
func (s *Store) indexKey() string            { return s.prefix + "index" }
func (s *Store) patientKey(id string) string { return s.prefix + "patient:" + id }
func (s *Store) doctorKey(id string) string  { return s.prefix + "doctor:" + id }

// Save persists the consultation inside a WATCH/MULTI transaction so concurrent
// writers from other replicas are detected.
func (s *Store) Save(ctx context.Context, c *domain.Consultation) error {
	key := s.key(c.ID)
	var next *domain.Consultation

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		var stored int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, backend.Nil):
		case err != nil:
			return fmt.Errorf("failed to get from redis: %w", err)
		default:
			var current domain.Consultation
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("failed to unmarshal consultation: %w", err)
			}
			stored = current.Version
		}
		if c.Version != stored {
			return domain.ErrVersionConflict
		}

		next = c.Clone()
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal consultation: %w", err)
		}

		member := backend.Z{Score: float64(c.CreatedAt.UnixMilli()), Member: c.ID}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, s.indexKey(), member)
			pipe.ZAdd(ctx, s.patientKey(c.PatientID), member)
			pipe.ZAdd(ctx, s.doctorKey(c.DoctorID), member)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, backend.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	c.Version = next.Version
	return nil
}

// Load retrieves the consultation from Redis.
func (s *Store) Load(ctx context.Context, id string) (*domain.Consultation, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(val)
}

func decode(raw []byte) (*domain.Consultation, error) {
	var c domain.Consultation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consultation: %w", err)
	}
	if c.History == nil {
		c.History = []domain.HistoryEntry{}
	}
	return &c, nil
}

// List reads the narrowest matching index and filters the remaining fields in memory.
// Index entries whose consultation key is gone are pruned lazily.
func (s *Store) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	index := s.indexKey()
	switch {
	case filter.PatientID != "":
		index = s.patientKey(filter.PatientID)
	case filter.DoctorID != "":
		index = s.doctorKey(filter.DoctorID)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	out := make([]*domain.Consultation, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load consultations: %w", err)
	}

	var missing []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		c, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	if len(missing) > 0 {
		if err := s.client.ZRem(ctx, index, missing...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune missing index entries: %w", err)
		}
	}

	ports.SortNewestFirst(out)
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
