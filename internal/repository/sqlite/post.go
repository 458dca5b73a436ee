package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/model"
	"github.com/hzj/miniblog/internal/repository"
)

// Compile-time check that *DB implements repository.PostRepository.
// `var _ X = (*Y)(nil)` fails the build immediately if a method is missing,
// instead of at the first call site that passes *DB as the interface.
var _ repository.PostRepository = (*DB)(nil)

// Create inserts a new post. The generated id and the create time are
// written back into the caller's struct — that is why the receiver takes a
// pointer.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	post.CreateTime = time.Now()

	// Parameterized query: the ? placeholders are escaped by the driver.
	// Never build SQL with string concatenation — that's how injection
	// happens.
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (title, content, create_time) VALUES (?, ?, ?)`,
		post.Title,
		post.Content,
		post.CreateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading post id: %w", err)
	}
	post.ID = id

	return nil
}

// GetByID retrieves a single post. sql.ErrNoRows is translated into the
// application's NotFound error — "no matching row" is a domain outcome, not
// a database failure.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, content, create_time FROM posts WHERE id = ?`,
		id,
	).Scan(&post.ID, &post.Title, &post.Content, &post.CreateTime)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}

	return &post, nil
}

// GetByIDs batch-loads the given posts with a single IN query. Ids with no
// matching row are simply absent from the result; the returned order follows
// the table, not ids.
func (db *DB) GetByIDs(ctx context.Context, ids []int64) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}

	// database/sql has no slice expansion, so build the placeholder list:
	// "?, ?, ?" for three ids.
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, content, create_time FROM posts WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: batch-loading posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, len(ids))
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CreateTime); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// List returns every post in insertion order. AUTOINCREMENT ids are
// monotonically increasing, so ORDER BY id IS insertion order.
func (db *DB) List(ctx context.Context) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, content, create_time FROM posts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	// rows holds a pool connection — forgetting Close() leaks it.
	defer rows.Close()

	posts := make([]model.Post, 0, 16)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CreateTime); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// Update rewrites title and content. id and create_time are immutable.
// RowsAffected == 0 means the WHERE clause matched nothing → NotFound,
// detected in one round trip instead of SELECT-then-UPDATE.
func (db *DB) Update(ctx context.Context, post *model.Post) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ? WHERE id = ?`,
		post.Title,
		post.Content,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %d: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// Delete removes a post. Same RowsAffected pattern as Update.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}
