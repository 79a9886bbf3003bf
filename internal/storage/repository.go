// Package storage is the SQLite persistence layer. One repository
// serves every collection: envelopes, goals, challenges and the
// notification log with its export bookkeeping.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pesso/internal/core"
	"pesso/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.EnvelopeStore     = (*Repository)(nil)
	_ store.GoalStore         = (*Repository)(nil)
	_ store.ChallengeStore    = (*Repository)(nil)
	_ store.NotificationStore = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, amount_cents, goal_cents FROM envelopes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	var out []core.Envelope
	for rows.Next() {
		var e core.Envelope
		var goal sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Icon, &e.Amount.Cents, &goal); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		if goal.Valid {
			e.Goal = &core.Money{Cents: goal.Int64}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) PutEnvelope(ctx context.Context, e core.Envelope) error {
	var goal sql.NullInt64
	if e.Goal != nil {
		goal = sql.NullInt64{Int64: e.Goal.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO envelopes (id, name, icon, amount_cents, goal_cents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			amount_cents = excluded.amount_cents,
			goal_cents = excluded.goal_cents`,
		e.ID, e.Name, e.Icon, e.Amount.Cents, goal)
	if err != nil {
		return fmt.Errorf("upsert envelope %s: %w", e.ID, err)
	}
	return nil
}

func (r *Repository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, emoji, target_cents, saved_cents, target_date FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var date sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.Emoji, &g.Target.Cents, &g.Saved.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if date.Valid {
			t, err := time.Parse(time.RFC3339Nano, date.String)
			if err != nil {
				return nil, fmt.Errorf("parse goal date %q: %w", date.String, err)
			}
			g.Date = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) PutGoal(ctx context.Context, g core.Goal) error {
	var date sql.NullString
	if g.Date != nil {
		date = sql.NullString{String: g.Date.Format(time.RFC3339Nano), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, name, emoji, target_cents, saved_cents, target_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			emoji = excluded.emoji,
			target_cents = excluded.target_cents,
			saved_cents = excluded.saved_cents,
			target_date = excluded.target_date`,
		g.ID, g.Name, g.Emoji, g.Target.Cents, g.Saved.Cents, date)
	if err != nil {
		return fmt.Errorf("upsert goal %s: %w", g.ID, err)
	}
	return nil
}

func (r *Repository) ListChallenges(ctx context.Context) ([]core.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, description, emoji, color, status,
		       created_at, end_date, completed_at,
		       saved_cents, target_cents, duration, min_cents, max_cents,
		       frequency, category, spins, remaining_spins, current_week, history
		FROM challenges ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer rows.Close()

	var out []core.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChallenge(rows *sql.Rows) (core.Challenge, error) {
	var c core.Challenge
	var createdAt, endDate, history string
	var completedAt sql.NullString
	err := rows.Scan(&c.ID, &c.Type, &c.Title, &c.Description, &c.Emoji, &c.Color, &c.Status,
		&createdAt, &endDate, &completedAt,
		&c.Saved.Cents, &c.Target.Cents, &c.Duration, &c.MinAmount.Cents, &c.MaxAmount.Cents,
		&c.Frequency, &c.Category, &c.Spins, &c.RemainingSpins, &c.CurrentWeek, &history)
	if err != nil {
		return c, fmt.Errorf("scan challenge: %w", err)
	}

	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return c, fmt.Errorf("parse challenge created_at %q: %w", createdAt, err)
	}
	if c.EndDate, err = time.Parse(time.RFC3339Nano, endDate); err != nil {
		return c, fmt.Errorf("parse challenge end_date %q: %w", endDate, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return c, fmt.Errorf("parse challenge completed_at %q: %w", completedAt.String, err)
		}
		c.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(history), &c.History); err != nil {
		return c, fmt.Errorf("decode challenge history: %w", err)
	}
	return c, nil
}

func (r *Repository) PutChallenge(ctx context.Context, c core.Challenge) error {
	history, err := json.Marshal(c.History)
	if err != nil {
		return fmt.Errorf("encode challenge history: %w", err)
	}
	var completedAt sql.NullString
	if c.CompletedAt != nil {
		completedAt = sql.NullString{String: c.CompletedAt.Format(time.RFC3339Nano), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO challenges (
			id, type, title, description, emoji, color, status,
			created_at, end_date, completed_at,
			saved_cents, target_cents, duration, min_cents, max_cents,
			frequency, category, spins, remaining_spins, current_week, history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			saved_cents = excluded.saved_cents,
			remaining_spins = excluded.remaining_spins,
			current_week = excluded.current_week,
			history = excluded.history`,
		c.ID, c.Type, c.Title, c.Description, c.Emoji, c.Color, c.Status,
		c.CreatedAt.Format(time.RFC3339Nano), c.EndDate.Format(time.RFC3339Nano), completedAt,
		c.Saved.Cents, c.Target.Cents, c.Duration, c.MinAmount.Cents, c.MaxAmount.Cents,
		c.Frequency, c.Category, c.Spins, c.RemainingSpins, c.CurrentWeek, string(history))
	if err != nil {
		return fmt.Errorf("upsert challenge %s: %w", c.ID, err)
	}
	return nil
}

func (r *Repository) AppendNotification(ctx context.Context, n core.Notification) (int64, error) {
	var amount sql.NullInt64
	if n.Amount != nil {
		amount = sql.NullInt64{Int64: n.Amount.Cents, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (type, title, description, amount_cents, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.Type, n.Title, n.Description, amount, n.Date.Format(time.RFC3339Nano), boolToInt(n.Read))
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification id: %w", err)
	}

	slog.InfoContext(ctx, "Notification saved",
		"id", id,
		"type", n.Type,
		"title", n.Title)
	return id, nil
}

func (r *Repository) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, description, amount_cents, created_at, is_read
		FROM notifications ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(rows *sql.Rows) (core.Notification, error) {
	var n core.Notification
	var amount sql.NullInt64
	var created string
	var read int
	if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Description, &amount, &created, &read); err != nil {
		return n, fmt.Errorf("scan notification: %w", err)
	}
	if amount.Valid {
		n.Amount = &core.Money{Cents: amount.Int64}
	}
	var err error
	if n.Date, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return n, fmt.Errorf("parse notification date %q: %w", created, err)
	}
	n.Read = read != 0
	return n, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// GetNotification loads one notification row for the export worker.
func (r *Repository) GetNotification(ctx context.Context, id int64) (core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, description, amount_cents, created_at, is_read
		FROM notifications WHERE id = ?`, id)
	if err != nil {
		return core.Notification{}, fmt.Errorf("query notification %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Notification{}, err
		}
		return core.Notification{}, fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
	}
	return scanNotification(rows)
}

// ListPendingExport returns notifications not yet pushed to the
// activity sheet, oldest first. Backup path for lost broker messages.
func (r *Repository) ListPendingExport(ctx context.Context, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, description, amount_cents, created_at, is_read
		FROM notifications
		WHERE exported = 0 AND export_error = 0
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending export: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkExported marks a notification as pushed to the activity sheet.
func (r *Repository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET exported = 1, export_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark notification exported: %w", err)
	}
	slog.InfoContext(ctx, "Notification marked as exported", "id", id)
	return nil
}

// MarkExportError flags a notification whose export keeps failing so
// the periodic pass stops retrying it.
func (r *Repository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET export_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark notification export error: %w", err)
	}
	slog.WarnContext(ctx, "Notification marked with export error", "id", id)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
