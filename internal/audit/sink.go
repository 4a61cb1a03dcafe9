package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
)

// Sink receives audit entries. Append errors are logged by the dispatcher
// and never reach the operation that produced the entry.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Reader is implemented by sinks that can answer audit queries.
type Reader interface {
	List(ctx context.Context, filter Filter) (Page, error)
	ActionCounts(ctx context.Context) ([]ActionCount, error)
}

// NoOpSink drops audit entries.
type NoOpSink struct{}

func (NoOpSink) Append(context.Context, Entry) error { return nil }

// ChannelSink writes audit entries into a buffered channel.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan Entry, buffer)}
}

func (s *ChannelSink) Append(ctx context.Context, entry Entry) error {
	select {
	case s.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Append(_ context.Context, entry Entry) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(data)
	return err
}

// MultiSink fans an entry out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, entry Entry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reader returns the first member that can answer queries.
func (m MultiSink) Reader() (Reader, bool) {
	for _, s := range m {
		if r, ok := s.(Reader); ok {
			return r, true
		}
	}
	return nil, false
}

// MemorySink keeps entries in process memory and answers queries. It backs
// tests and the in-process demo.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Snapshot returns a copy of every entry in append order.
func (s *MemorySink) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) List(_ context.Context, filter Filter) (Page, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	var matched []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return NewPage(matched[start:end], total, filter), nil
}

func (s *MemorySink) ActionCounts(context.Context) ([]ActionCount, error) {
	s.mu.RLock()
	counts := make(map[Action]int)
	for _, e := range s.entries {
		counts[e.Action]++
	}
	s.mu.RUnlock()
	return SortCounts(counts), nil
}

// SortCounts orders a histogram by count descending, then action name.
func SortCounts(counts map[Action]int) []ActionCount {
	out := make([]ActionCount, 0, len(counts))
	for a, n := range counts {
		out = append(out, ActionCount{Action: a, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out
}
