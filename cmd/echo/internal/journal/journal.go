package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
)

// Both drivers accept this schema and the '?' placeholders below.
const schema = `CREATE TABLE IF NOT EXISTS sessions (
	started_at  VARCHAR(40) NOT NULL,
	peer_addr   VARCHAR(64) NOT NULL,
	peer_port   INTEGER     NOT NULL,
	outcome     VARCHAR(16) NOT NULL,
	content_len INTEGER     NOT NULL,
	duration_us BIGINT      NOT NULL
)`

// Fixed width so that started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Journal is a SQL-backed core.SessionRecorder.
type Journal struct {
	db *sql.DB
}

// Open connects to the database and makes sure the sessions table exists.
func Open(ctx context.Context, driver, dsn string) (*Journal, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s journal: %w", driver, err)
	}
	if driver == "sqlite3" {
		// ":memory:" databases are per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s journal: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record implements core.SessionRecorder.
func (j *Journal) Record(ctx context.Context, s core.Session) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO sessions (started_at, peer_addr, peer_port, outcome, content_len, duration_us) VALUES (?, ?, ?, ?, ?, ?)",
		s.Started.UTC().Format(timeLayout), s.PeerAddr, s.PeerPort, string(s.Outcome), s.ContentLen, s.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]core.Session, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT started_at, peer_addr, peer_port, outcome, content_len, duration_us FROM sessions ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []core.Session
	for rows.Next() {
		var (
			s          core.Session
			started    string
			outcome    string
			durationUS int64
		)
		if err := rows.Scan(&started, &s.PeerAddr, &s.PeerPort, &outcome, &s.ContentLen, &durationUS); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Started, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("bad started_at %q: %w", started, err)
		}
		s.Outcome = core.Outcome(outcome)
		s.Duration = time.Duration(durationUS) * time.Microsecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
