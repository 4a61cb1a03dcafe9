package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/session"
)

func newTestStore(t *testing.T, opts Options) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, opts), mr
}

func testUser(id, email string, created time.Time) *account.User {
	return &account.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         account.RoleUser,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestCreateAndFind(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()

	u := testUser("u1", "alice@example.com", now)
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Version != 1 {
		t.Fatalf("expected version 1, got %d", u.Version)
	}

	byEmail, err := s.FindByEmail(ctx, "  ALICE@example.com ")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != "u1" || byEmail.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	byID, err := s.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !byID.CreatedAt.Equal(now) {
		t.Fatalf("createdAt mismatch: %v", byID.CreatedAt)
	}

	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	if err := s.Create(ctx, testUser("u1", "dup@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, testUser("u2", "dup@example.com", time.Now()))
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUpdateAppliesMutation(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Create(ctx, testUser("u1", "a@example.com", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.Update(ctx, "u1", func(u *account.User) error {
		u.AddSession(session.Session{TokenHash: "h1", ExpiresAt: now.Add(time.Hour)})
		u.FailedLoginAttempts = 2
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.FailedLoginAttempts != 2 || updated.Sessions.Len() != 1 {
		t.Fatalf("unexpected result: %+v", updated)
	}

	ids, err := s.UserIDsWithSessions(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("expected u1 in session index, got %v", ids)
	}

	if _, err := s.Update(ctx, "u1", func(u *account.User) error {
		u.RemoveSessions(session.ByTokenHash("h1"))
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	ids, _ = s.UserIDsWithSessions(ctx)
	if len(ids) != 0 {
		t.Fatalf("expected empty session index, got %v", ids)
	}
}

func TestUpdateNoChangeSkipsWrite(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	if err := s.Create(ctx, testUser("u1", "a@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Update(ctx, "u1", func(u *account.User) error {
		u.FailedLoginAttempts = 99
		return account.ErrNoChange
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Version != 1 || got.FailedLoginAttempts != 0 {
		t.Fatalf("expected untouched document, got %+v", got)
	}
}

func TestUpdatePropagatesCallbackError(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	if err := s.Create(ctx, testUser("u1", "a@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	sentinel := errors.New("stop")
	if _, err := s.Update(ctx, "u1", func(*account.User) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := s.Update(ctx, "missing", func(*account.User) error { return nil }); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEmailChangeMovesIndex(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	if err := s.Create(ctx, testUser("u1", "old@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, testUser("u2", "taken@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Update(ctx, "u1", func(u *account.User) error {
		u.Email = "taken@example.com"
		return nil
	}); !errors.Is(err, account.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if _, err := s.Update(ctx, "u1", func(u *account.User) error {
		u.Email = "New@Example.com"
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.FindByEmail(ctx, "old@example.com"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("old email should be released, got %v", err)
	}
	u, err := s.FindByEmail(ctx, "new@example.com")
	if err != nil || u.ID != "u1" {
		t.Fatalf("new email lookup failed: %v %+v", err, u)
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxUpdateRetries: 200})
	ctx := context.Background()
	if err := s.Create(ctx, testUser("u1", "a@example.com", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "u1", func(u *account.User) error {
				u.FailedLoginAttempts++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	u, err := s.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.FailedLoginAttempts != workers {
		t.Fatalf("expected %d increments, got %d", workers, u.FailedLoginAttempts)
	}
	if u.Version != workers+1 {
		t.Fatalf("expected version %d, got %d", workers+1, u.Version)
	}
}

func TestListNewestFirst(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()

	for i := 0; i < 3; i++ {
		u := testUser(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 || users[0].ID != "u2" || users[2].ID != "u0" {
		t.Fatalf("unexpected order: %v", []string{users[0].ID, users[1].ID, users[2].ID})
	}
}

func TestPingReportsUnavailable(t *testing.T) {
	s, mr := newTestStore(t, Options{})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := s.Ping(context.Background()); !errors.Is(err, account.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuditAppendListAndCounts(t *testing.T) {
	s, _ := newTestStore(t, Options{Prefix: "t"})
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()

	add := func(id, user string, action audit.Action) {
		t.Helper()
		err := s.Append(ctx, audit.Entry{ID: id, UserID: user, Action: action, Status: audit.StatusSuccess, CreatedAt: base})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	add("1", "u1", audit.ActionLoginSuccess)
	add("2", "u1", audit.ActionLoginFailed)
	add("3", "u2", audit.ActionLoginSuccess)
	add("4", "", audit.ActionLoginFailed)
	add("5", "u1", audit.ActionLoginSuccess)

	all, err := s.List(ctx, audit.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 5 || all.TotalPages != 3 || len(all.Entries) != 2 || all.Entries[0].ID != "5" {
		t.Fatalf("unexpected page: %+v", all)
	}

	second, _ := s.List(ctx, audit.Filter{Page: 2, Limit: 2})
	if len(second.Entries) != 2 || second.Entries[0].ID != "3" {
		t.Fatalf("unexpected second page: %+v", second)
	}

	byUser, _ := s.List(ctx, audit.Filter{UserID: "u1"})
	if byUser.Total != 3 {
		t.Fatalf("expected 3 entries for u1, got %d", byUser.Total)
	}

	byAction, _ := s.List(ctx, audit.Filter{Action: audit.ActionLoginFailed})
	if byAction.Total != 2 || byAction.Entries[0].ID != "4" {
		t.Fatalf("unexpected action page: %+v", byAction)
	}

	both, _ := s.List(ctx, audit.Filter{UserID: "u1", Action: audit.ActionLoginSuccess})
	if both.Total != 2 || both.Entries[0].ID != "5" || both.Entries[1].ID != "1" {
		t.Fatalf("unexpected combined page: %+v", both)
	}

	counts, err := s.ActionCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 2 || counts[0].Action != audit.ActionLoginSuccess || counts[0].Count != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

var (
	_ audit.Sink   = (*Store)(nil)
	_ audit.Reader = (*Store)(nil)
)
