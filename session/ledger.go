package session

import (
	"sort"
	"time"
)

// Predicate selects sessions for lookup or removal.
type Predicate func(Session) bool

// Ledger is the ordered set of sessions owned by one user. Order is insertion
// order; callers mutate it only through its methods.
type Ledger []Session

// Len returns the number of recorded sessions, active or not.
func (l Ledger) Len() int { return len(l) }

// Add appends s to the ledger.
func (l *Ledger) Add(s Session) {
	*l = append(*l, s)
}

// RemoveWhere drops every session matching pred and returns the removed
// records in their original order. The ledger is left untouched when nothing
// matches.
func (l *Ledger) RemoveWhere(pred Predicate) []Session {
	if pred == nil || len(*l) == 0 {
		return nil
	}

	var removed []Session
	kept := make(Ledger, 0, len(*l))
	for _, s := range *l {
		if pred(s) {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	if len(removed) == 0 {
		return nil
	}

	*l = kept
	return removed
}

// Find returns the first session matching pred.
func (l Ledger) Find(pred Predicate) (Session, bool) {
	for _, s := range l {
		if pred(s) {
			return s, true
		}
	}
	return Session{}, false
}

// Active returns the non-expired sessions ordered by LastActive, most recent first.
func (l Ledger) Active(now time.Time) []Session {
	out := make([]Session, 0, len(l))
	for _, s := range l {
		if s.Active(now) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// TrimOldest removes the least recently active sessions until at most max
// remain. max <= 0 disables the cap.
func (l *Ledger) TrimOldest(max int) []Session {
	if max <= 0 || len(*l) <= max {
		return nil
	}

	order := make([]int, len(*l))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return (*l)[order[a]].LastActive.Before((*l)[order[b]].LastActive)
	})

	evict := make(map[string]struct{}, len(*l)-max)
	for _, idx := range order[:len(*l)-max] {
		evict[(*l)[idx].TokenID] = struct{}{}
	}
	return l.RemoveWhere(func(s Session) bool {
		_, ok := evict[s.TokenID]
		return ok
	})
}

// ByTokenHash matches the session whose credential digest equals hash.
func ByTokenHash(hash string) Predicate {
	return func(s Session) bool {
		return hash != "" && s.TokenHash == hash
	}
}

// ByToken matches the session holding the given refresh token.
func ByToken(token string) Predicate {
	return ByTokenHash(HashToken(token))
}

// ByTokenID matches the session with the given public id.
func ByTokenID(id string) Predicate {
	return func(s Session) bool {
		return id != "" && s.TokenID == id
	}
}

// ExpiredAt matches sessions whose expiry is at or before now.
func ExpiredAt(now time.Time) Predicate {
	return func(s Session) bool {
		return !s.Active(now)
	}
}

// Not inverts pred.
func Not(pred Predicate) Predicate {
	return func(s Session) bool {
		return !pred(s)
	}
}
