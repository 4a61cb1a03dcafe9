package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/account"
)

const defaultMaxRetries = 8

// Options tunes the store.
type Options struct {
	Prefix           string
	MaxUpdateRetries int
}

// Store implements the credential store and audit sink over Redis.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	maxRetries int
}

// New returns a store using client. The client is owned by the caller.
func New(client redis.UniversalClient, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = "sa"
	}
	if opts.MaxUpdateRetries <= 0 {
		opts.MaxUpdateRetries = defaultMaxRetries
	}
	return &Store{
		redis:      client,
		prefix:     opts.Prefix,
		maxRetries: opts.MaxUpdateRetries,
	}
}

func (s *Store) userKey(id string) string { return s.prefix + ":user:" + id }

func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }

func (s *Store) usersKey() string { return s.prefix + ":users" }

func (s *Store) sessionUsersKey() string { return s.prefix + ":users:sessions" }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Create inserts u. The email index is claimed in the same transaction, so a
// concurrent create for the same email fails with account.ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, u *account.User) error {
	if u == nil || u.ID == "" || u.Email == "" {
		return errors.New("redisstore: user requires id and email")
	}
	doc := u.Clone()
	doc.Version = 1

	emailKey := s.emailKey(doc.Email)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, emailKey, s.userKey(doc.ID)).Result()
			if err != nil {
				return unavailable(err)
			}
			if exists > 0 {
				return account.ErrDuplicateEmail
			}

			payload, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.userKey(doc.ID), payload, 0)
				pipe.Set(ctx, emailKey, doc.ID, 0)
				pipe.ZAdd(ctx, s.usersKey(), redis.Z{Score: float64(doc.CreatedAt.UnixNano()), Member: doc.ID})
				if doc.HasSessions() {
					pipe.SAdd(ctx, s.sessionUsersKey(), doc.ID)
				}
				return nil
			})
			return err
		}, emailKey)

		switch {
		case err == nil:
			u.Version = doc.Version
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, account.ErrDuplicateEmail):
			return err
		default:
			return unavailable(err)
		}
	}
	return account.ErrConflict
}

// FindByID loads a user document.
func (s *Store) FindByID(ctx context.Context, id string) (*account.User, error) {
	return s.get(ctx, s.redis, id)
}

// FindByEmail resolves the email index, then loads the document.
func (s *Store) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(account.NormalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.get(ctx, s.redis, id)
}

// Update applies mutate to a fresh copy of the user and commits it only if
// the document did not change underneath. mutate may run more than once.
func (s *Store) Update(ctx context.Context, id string, mutate func(*account.User) error) (*account.User, error) {
	key := s.userKey(id)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var (
			result    *account.User
			mutateErr error
		)
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := s.get(ctx, tx, id)
			if err != nil {
				return err
			}

			next := current.Clone()
			if err := mutate(next); err != nil {
				if errors.Is(err, account.ErrNoChange) {
					result = current
					return nil
				}
				mutateErr = err
				return err
			}
			next.ID = current.ID
			next.Email = account.NormalizeEmail(next.Email)
			next.Version = current.Version + 1

			emailChanged := next.Email != current.Email
			if emailChanged {
				newEmailKey := s.emailKey(next.Email)
				if err := tx.Watch(ctx, newEmailKey).Err(); err != nil {
					return unavailable(err)
				}
				owner, err := tx.Get(ctx, newEmailKey).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return unavailable(err)
				}
				if err == nil && owner != id {
					return account.ErrDuplicateEmail
				}
			}

			payload, err := json.Marshal(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				if emailChanged {
					pipe.Del(ctx, s.emailKey(current.Email))
					pipe.Set(ctx, s.emailKey(next.Email), id, 0)
				}
				if next.HasSessions() {
					pipe.SAdd(ctx, s.sessionUsersKey(), id)
				} else {
					pipe.SRem(ctx, s.sessionUsersKey(), id)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result = next
			return nil
		}, key)

		switch {
		case err == nil:
			return result, nil
		case mutateErr != nil:
			return nil, mutateErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, account.ErrNotFound),
			errors.Is(err, account.ErrDuplicateEmail),
			errors.Is(err, account.ErrStoreUnavailable):
			return nil, err
		default:
			return nil, unavailable(err)
		}
	}
	return nil, account.ErrConflict
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*account.User, error) {
	ids, err := s.redis.ZRevRange(ctx, s.usersKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []*account.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.userKey(id)
	}
	raw, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	users := make([]*account.User, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		u, err := decodeUser(str)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// UserIDsWithSessions returns ids of users whose ledger is non-empty.
func (s *Store) UserIDsWithSessions(ctx context.Context) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.sessionUsersKey()).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, r getter, id string) (*account.User, error) {
	if id == "" {
		return nil, account.ErrNotFound
	}
	raw, err := r.Get(ctx, s.userKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return decodeUser(raw)
}

func decodeUser(raw string) (*account.User, error) {
	var u account.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("redisstore: decode user: %w", err)
	}
	return &u, nil
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, account.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", account.ErrStoreUnavailable, err)
}
