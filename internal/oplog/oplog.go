package oplog

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/model"
)

// Log is the append-only record of publish outcomes, backed by a sqlite
// database under the data directory.
type Log struct {
	db *sqlx.DB
}

func Open(config *boot.Config) (*Log, error) {
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", model.ErrorStorage, err)
	}

	dbName := config.DatabaseFile()
	isCreating := false
	_, err := os.Stat(dbName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			isCreating = true
		}
	}

	db, err := sqlx.Connect("sqlite3", "file:"+dbName+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", model.ErrorStorage, err)
	}

	opLog := &Log{db}
	if isCreating {
		if err := opLog.createTables(); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: creating tables: %v", model.ErrorStorage, err)
		}
	}

	return opLog, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) createTables() error {
	_, err := l.db.Exec(`create table publish_log(
		id            text not null primary key,
		tweet_id      text not null default '',
		text          text not null,
		status        text not null,
		attempts      integer not null default 0,
		error_message text not null default '',
		created_at    datetime not null
	)`)
	if err != nil {
		return fmt.Errorf("creating publish_log table: %w", err)
	}

	_, err = l.db.Exec(`create index idx_publish_log_created_at on publish_log(created_at)`)
	if err != nil {
		return fmt.Errorf("creating publish_log index: %w", err)
	}

	return nil
}

// Append inserts one entry. Entries are never updated or deleted here;
// retention is an operator concern.
func (l *Log) Append(entry *model.LogEntry) error {
	res, err := l.db.NamedExec(`insert into publish_log
		(id, tweet_id, text, status, attempts, error_message, created_at)
		values(:id, :tweet_id, :text, :status, :attempts, :error_message, :created_at)`, entry)

	if err != nil {
		return fmt.Errorf("%w: inserting log entry: %v", model.ErrorStorage, err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%w: getting rows affected: %v", model.ErrorStorage, err)
	} else if rows != 1 {
		return fmt.Errorf("%w: expected 1 row to be affected, got %d", model.ErrorStorage, rows)
	}

	return nil
}

// Recent returns up to limit entries, most recent first. Each call
// re-queries current state.
func (l *Log) Recent(limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries := []model.LogEntry{}
	err := l.db.Select(&entries, `select * from publish_log
		order by created_at desc, id desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying log entries: %v", model.ErrorStorage, err)
	}
	return entries, nil
}
