package bot

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opsclaw/opsclaw/errors"
)

// TrackedItem is one entry in a user's /track list.
type TrackedItem struct {
	ID        int64
	UserID    string
	Text      string
	Done      bool
	CreatedAt time.Time
}

// Tracker is the sqlite-backed store behind the /track command. Items are
// scoped per user id so lists never leak between users.
type Tracker struct {
	db     *sql.DB
	logger *slog.Logger
}

const trackerSchema = `
CREATE TABLE IF NOT EXISTS items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_user ON items(user_id, done);
`

// NewTracker opens (and if necessary creates) the tracker database at path.
func NewTracker(path string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "could not create tracker directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open tracker db %s", path)
	}
	if _, err := db.Exec(trackerSchema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "could not migrate tracker db")
	}

	logger.Debug("tracker db opened", "path", path)
	return &Tracker{db: db, logger: logger}, nil
}

func (t *Tracker) Close() error { return t.db.Close() }

// Add inserts a new open item and returns its id.
func (t *Tracker) Add(ctx context.Context, userID, text string) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO items (user_id, text) VALUES (?, ?)`, userID, text)
	if err != nil {
		return 0, errors.Wrapf(err, "could not add tracked item")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "could not read item id")
	}
	return id, nil
}

// List returns the user's open items, oldest first.
func (t *Tracker) List(ctx context.Context, userID string) ([]TrackedItem, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, user_id, text, done, created_at FROM items
		 WHERE user_id = ? AND done = 0 ORDER BY id`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list tracked items")
	}
	defer rows.Close()

	var items []TrackedItem
	for rows.Next() {
		var it TrackedItem
		var done int
		if err := rows.Scan(&it.ID, &it.UserID, &it.Text, &done, &it.CreatedAt); err != nil {
			return nil, errors.Wrapf(err, "could not scan tracked item")
		}
		it.Done = done != 0
		items = append(items, it)
	}
	return items, rows.Err()
}

// Done marks the user's item as completed. The second return is false when no
// open item with that id belongs to the user.
func (t *Tracker) Done(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := t.db.ExecContext(ctx,
		`UPDATE items SET done = 1 WHERE id = ? AND user_id = ? AND done = 0`, id, userID)
	if err != nil {
		return false, errors.Wrapf(err, "could not complete tracked item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "could not read affected rows")
	}
	return n > 0, nil
}
