package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/model"
	"github.com/hzj/miniblog/internal/repository"
)

var _ repository.UserRepository = (*userStore)(nil)

// Users returns the user-repository view of the store. Posts and users live
// in one SQLite file, but the method sets collide on *DB (both interfaces
// have Create/GetByID), so the user side lives on a separate view type over
// the same connection.
func (db *DB) Users() repository.UserRepository { return (*userStore)(db) }

// Posts returns the post-repository view of the store.
func (db *DB) Posts() repository.PostRepository { return db }

// userStore implements repository.UserRepository over the same connection.
type userStore DB

// Create inserts a new user. The UNIQUE(phone) constraint is the system's
// identifier-uniqueness invariant; a duplicate insert surfaces as a plain
// database error since callers always look up before creating.
func (s *userStore) Create(ctx context.Context, user *model.User) error {
	user.CreateTime = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (phone, username, password, create_time) VALUES (?, ?, ?, ?)`,
		user.Phone,
		user.Username,
		user.Password,
		user.CreateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by its stable numeric id.
func (s *userStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, phone, username, password, create_time FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Phone, &user.Username, &user.Password, &user.CreateTime)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &user, nil
}

// GetByPhone retrieves a user by its login identifier (phone number or
// prefixed OAuth subject).
func (s *userStore) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, phone, username, password, create_time FROM users WHERE phone = ?`,
		phone,
	).Scan(&user.ID, &user.Phone, &user.Username, &user.Password, &user.CreateTime)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", phone)
		}
		return nil, fmt.Errorf("sqlite: getting user by phone %s: %w", phone, err)
	}

	return &user, nil
}

// UpdateUsername refreshes the display name (repeat OAuth logins carry the
// provider's current username). Nothing else on a user row ever changes.
func (s *userStore) UpdateUsername(ctx context.Context, id int64, username string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET username = ? WHERE id = ?`,
		username,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
