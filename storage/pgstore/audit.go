package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrEthical07/sessionauth/internal/audit"
)

// Append inserts an audit row.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("pgstore: encode audit metadata: %w", err)
		}
	}

	const q = `
INSERT INTO audit_logs (id, user_id, email, action, details, ip_address, user_agent, status, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID, e.UserID, e.Email, string(e.Action), e.Details,
		e.IPAddress, e.UserAgent, string(e.Status), metadata, e.CreatedAt,
	)
	if err != nil {
		return unavailable("insert audit entry", err)
	}
	return nil
}

// List pages through audit rows newest first.
func (s *Store) List(ctx context.Context, filter audit.Filter) (audit.Page, error) {
	filter = filter.Normalize()

	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return audit.Page{}, unavailable("count audit entries", err)
	}

	q := "SELECT id, user_id, email, action, details, ip_address, user_agent, status, metadata, created_at FROM audit_logs" +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return audit.Page{}, unavailable("list audit entries", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0, filter.Limit)
	for rows.Next() {
		var (
			e        audit.Entry
			action   string
			status   string
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &action, &e.Details, &e.IPAddress, &e.UserAgent, &status, &metadata, &e.CreatedAt); err != nil {
			return audit.Page{}, unavailable("scan audit entry", err)
		}
		e.Action = audit.Action(action)
		e.Status = audit.Status(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return audit.Page{}, fmt.Errorf("pgstore: decode audit metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return audit.Page{}, unavailable("list audit entries", err)
	}
	return audit.NewPage(entries, total, filter), nil
}

// ActionCounts returns the per-action histogram.
func (s *Store) ActionCounts(ctx context.Context) ([]audit.ActionCount, error) {
	const q = `SELECT action, COUNT(*) FROM audit_logs GROUP BY action`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, unavailable("count audit actions", err)
	}
	defer rows.Close()

	counts := make(map[audit.Action]int)
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, unavailable("scan audit count", err)
		}
		counts[audit.Action(action)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count audit actions", err)
	}
	return audit.SortCounts(counts), nil
}
