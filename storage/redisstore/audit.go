package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/internal/audit"
)

func (s *Store) auditKey() string { return s.prefix + ":audit:entries" }

func (s *Store) auditUserKey(id string) string { return s.prefix + ":audit:user:" + id }

func (s *Store) auditActionKey(a audit.Action) string { return s.prefix + ":audit:action:" + string(a) }

func (s *Store) auditCountsKey() string { return s.prefix + ":audit:counts" }

// Append records an audit entry in the global, per-user and per-action lists.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.auditKey(), payload)
		if entry.UserID != "" {
			pipe.LPush(ctx, s.auditUserKey(entry.UserID), payload)
		}
		pipe.LPush(ctx, s.auditActionKey(entry.Action), payload)
		pipe.HIncrBy(ctx, s.auditCountsKey(), string(entry.Action), 1)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// List pages through audit entries newest first. When both user and action
// are set the user's list is scanned and filtered in memory.
func (s *Store) List(ctx context.Context, filter audit.Filter) (audit.Page, error) {
	filter = filter.Normalize()

	if filter.UserID != "" && filter.Action != "" {
		raw, err := s.redis.LRange(ctx, s.auditUserKey(filter.UserID), 0, -1).Result()
		if err != nil {
			return audit.Page{}, unavailable(err)
		}
		var matched []audit.Entry
		for _, r := range raw {
			e, err := decodeEntry(r)
			if err != nil {
				return audit.Page{}, err
			}
			if e.Action == filter.Action {
				matched = append(matched, e)
			}
		}
		total := len(matched)
		start := min(filter.Offset(), total)
		end := min(start+filter.Limit, total)
		return audit.NewPage(matched[start:end], total, filter), nil
	}

	key := s.auditKey()
	switch {
	case filter.UserID != "":
		key = s.auditUserKey(filter.UserID)
	case filter.Action != "":
		key = s.auditActionKey(filter.Action)
	}

	var (
		lenCmd   *redis.IntCmd
		rangeCmd *redis.StringSliceCmd
	)
	start := int64(filter.Offset())
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		lenCmd = pipe.LLen(ctx, key)
		rangeCmd = pipe.LRange(ctx, key, start, start+int64(filter.Limit)-1)
		return nil
	})
	if err != nil {
		return audit.Page{}, unavailable(err)
	}

	entries := make([]audit.Entry, 0, len(rangeCmd.Val()))
	for _, r := range rangeCmd.Val() {
		e, err := decodeEntry(r)
		if err != nil {
			return audit.Page{}, err
		}
		entries = append(entries, e)
	}
	return audit.NewPage(entries, int(lenCmd.Val()), filter), nil
}

// ActionCounts returns the per-action histogram.
func (s *Store) ActionCounts(ctx context.Context) ([]audit.ActionCount, error) {
	raw, err := s.redis.HGetAll(ctx, s.auditCountsKey()).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	counts := make(map[audit.Action]int, len(raw))
	for action, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("redisstore: bad audit count for %s: %w", action, err)
		}
		counts[audit.Action(action)] = n
	}
	return audit.SortCounts(counts), nil
}

func decodeEntry(raw string) (audit.Entry, error) {
	var e audit.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return audit.Entry{}, fmt.Errorf("redisstore: decode audit entry: %w", err)
	}
	return e, nil
}
