package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_state (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL DEFAULT '{}',
	intent     TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);`

// Sqlite is the embedded-database Users implementation. Lookup keys only
// ever travel as bound parameters, never spliced into SQL text.
type Sqlite struct {
	db *sqlx.DB
}

// NewSqlite opens (creating if needed) the state database at dsn.
func NewSqlite(dsn string) (*Sqlite, error) {

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "store: open sqlite")
	}
	// single writer; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "store: migrate")
	}
	return &Sqlite{db: db}, nil
}

func (s *Sqlite) Get(ctx context.Context, id string) (*User, error) {

	query, args, err := sq.
		Select("data", "intent", "updated_at").
		From("user_state").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.WithMessage(err, "store: build select")
	}

	var (
		blob    string
		intent  string
		updated int64
	)
	err = s.db.QueryRowxContext(ctx, query, args...).
		Scan(&blob, &intent, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithMessage(err, "store: select user_state")
	}

	user := &User{
		ID:        id,
		Intent:    intent,
		UpdatedAt: time.UnixMilli(updated),
	}
	if blob != "" && blob != "{}" {
		if err = json.Unmarshal([]byte(blob), &user.Data); err != nil {
			return nil, errors.WithMessage(err, "store: decode user data")
		}
	}
	return user, nil
}

func (s *Sqlite) Put(ctx context.Context, user *User) error {

	if user == nil || user.ID == "" {
		return errors.New("store: user id required")
	}

	blob := []byte("{}")
	if user.Data != nil {
		var err error
		if blob, err = json.Marshal(user.Data); err != nil {
			return errors.WithMessage(err, "store: encode user data")
		}
	}

	updated := user.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	query, args, err := sq.
		Insert("user_state").
		Columns("id", "data", "intent", "updated_at").
		Values(user.ID, string(blob), user.Intent, updated.UnixMilli()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			intent = excluded.intent,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return errors.WithMessage(err, "store: build upsert")
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return errors.WithMessage(err, "store: upsert user_state")
}

func (s *Sqlite) Delete(ctx context.Context, id string) error {

	query, args, err := sq.
		Delete("user_state").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.WithMessage(err, "store: build delete")
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return errors.WithMessage(err, "store: delete user_state")
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}
