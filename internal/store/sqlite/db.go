package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per-connection with this driver, and SQLite allows one
	// writer at a time anyway; a single pooled connection keeps the
	// pragmas in effect and keeps the concurrent REST and socket persist
	// paths from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations: a simple, idempotent set of
// CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			hashed_password TEXT NOT NULL,
			profile_image TEXT NOT NULL DEFAULT '',
			is_online BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		// Friendships are stored in both directions, one row per direction.
		`CREATE TABLE IF NOT EXISTS friendships (
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, friend_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (friend_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (from_id, to_id),
			FOREIGN KEY (from_id) REFERENCES users(id),
			FOREIGN KEY (to_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			edited BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (from_id) REFERENCES users(id),
			FOREIGN KEY (to_id) REFERENCES users(id)
		);`,
		// rowid keeps reactions in insertion order.
		`CREATE TABLE IF NOT EXISTS reactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			emoji TEXT NOT NULL,
			by_id TEXT NOT NULL,
			FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE,
			FOREIGN KEY (by_id) REFERENCES users(id)
		);`,
		// One row per sender/recipient pair; status carries the gate state,
		// so a second message from a pending or already-handled sender never
		// creates a second request.
		`CREATE TABLE IF NOT EXISTS message_requests (
			sender_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (sender_id, recipient_id),
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (recipient_id) REFERENCES users(id)
		);`,
		// Unread counting uses a per-pair read watermark.
		`CREATE TABLE IF NOT EXISTS read_marks (
			user_id TEXT NOT NULL,
			partner_id TEXT NOT NULL,
			last_read_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, partner_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (partner_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);`,
		`CREATE INDEX IF NOT EXISTS idx_message_requests_recipient ON message_requests(recipient_id, status);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
