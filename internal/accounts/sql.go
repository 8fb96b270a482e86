package accounts

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	selectPasswords = `SELECT user_id, user_password FROM UsersInfo`
	updatePassword  = `UPDATE UsersInfo SET user_password = ? WHERE user_id = ?`
)

// SQLRepository reads and writes UsersInfo through sqlx. Driver is "mysql"
// or "postgres".
type SQLRepository struct {
	db *sqlx.DB
}

func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	switch driver {
	case "mysql", "postgres":
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return NewSQLRepository(db), nil
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// ping waits for the database, backing off a little more each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}

func (r *SQLRepository) ListPasswords(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.SelectContext(ctx, &users, selectPasswords); err != nil {
		return nil, errors.Wrap(err, "select UsersInfo")
	}
	return users, nil
}

func (r *SQLRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(updatePassword), hash, id)
	return errors.Wrapf(err, "update user %d", id)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}
