package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/session"
)

// SweepResult summarizes a sweep. Errs holds per-user failures; the sweep
// continues past them.
type SweepResult struct {
	UsersScanned int
	UsersChanged int
	Removed      int
	Failed       int
	Errs         []error
}

// SweepDeps captures sweep dependencies. Now is read inside each user's
// update so the cutoff is taken against that user's snapshot.
type SweepDeps struct {
	Store UserStore
	Scope StoreScope
	Now   func() time.Time
}

// RunSweep removes expired sessions from every user that has any.
func RunSweep(ctx context.Context, deps SweepDeps) (SweepResult, error) {
	sctx, cancel := deps.Scope.bind(ctx)
	ids, err := deps.Store.UserIDsWithSessions(sctx)
	cancel()
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Errs = append(res.Errs, err)
			return res, errors.Join(res.Errs...)
		}
		res.UsersScanned++

		n, err := RunSweepUser(ctx, id, deps)
		switch {
		case errors.Is(err, account.ErrNotFound):
			continue
		case err != nil:
			res.Failed++
			res.Errs = append(res.Errs, err)
			continue
		}
		if n > 0 {
			res.UsersChanged++
			res.Removed += n
		}
	}
	return res, nil
}

// RunSweepUser removes expired sessions of one user and returns how many.
// Nothing is written when no session has expired.
func RunSweepUser(ctx context.Context, userID string, deps SweepDeps) (int, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	var removed int
	sctx, cancel := deps.Scope.bind(ctx)
	defer cancel()
	_, err := deps.Store.Update(sctx, userID, func(cur *account.User) error {
		cutoff := now()
		removed = len(cur.RemoveSessions(session.ExpiredAt(cutoff)))
		if removed == 0 {
			return account.ErrNoChange
		}
		cur.UpdatedAt = cutoff
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
