// Package accounts migrates the legacy UsersInfo table from plaintext
// passwords to bcrypt hashes.
package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost used by the web backend.
const DefaultCost = 10

type User struct {
	ID       int64  `db:"user_id"`
	Password string `db:"user_password"`
}

type Repository interface {
	ListPasswords(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// Report counts what a migration run did with each row.
type Report struct {
	Total   int
	Hashed  int
	Skipped int
	Failed  int
}

// IsHashed reports whether pw already looks like a bcrypt hash.
func IsHashed(pw string) bool {
	_, err := bcrypt.Cost([]byte(pw))
	return err == nil
}

// HashPasswords replaces every plaintext password with its bcrypt hash.
// Rows that are already hashed or empty are skipped. A failed update is
// logged and counted; the run carries on with the next row.
func HashPasswords(ctx context.Context, repo Repository, cost int, log zerolog.Logger) (Report, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Report{}, errors.Errorf("bcrypt cost %d out of range %d-%d", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	users, err := repo.ListPasswords(ctx)
	if err != nil {
		return Report{}, errors.Wrap(err, "list users")
	}

	rep := Report{Total: len(users)}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		switch {
		case u.Password == "":
			log.Warn().Int64("user_id", u.ID).Msg("empty password, skipping")
			rep.Skipped++
			continue
		case IsHashed(u.Password):
			rep.Skipped++
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			log.Error().Err(err).Int64("user_id", u.ID).Msg("hashing password")
			rep.Failed++
			continue
		}
		if err := repo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
			log.Error().Err(err).Int64("user_id", u.ID).Msg("updating password")
			rep.Failed++
			continue
		}
		log.Info().Int64("user_id", u.ID).Msg("password hashed")
		rep.Hashed++
	}
	return rep, nil
}
