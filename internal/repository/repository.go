// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the concrete implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/hzj/miniblog/internal/model"
)

// PostRepository is the exclusive owner of post records.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	// GetByIDs batch-loads posts. The returned order is NOT guaranteed to
	// match ids — callers that care about order must re-sort (the view-count
	// leaderboard does).
	GetByIDs(ctx context.Context, ids []int64) ([]model.Post, error)
	// List returns all posts in insertion order.
	List(ctx context.Context) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository is the exclusive owner of user records, keyed by the unique
// phone identifier (which also holds prefixed OAuth subject ids).
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	// UpdateUsername refreshes the display name; used on repeat OAuth login.
	UpdateUsername(ctx context.Context, id int64, username string) error
}
