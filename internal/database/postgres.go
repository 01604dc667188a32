// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB     *sqlx.DB
	logger *slog.Logger
}

var _ DBAdapter = (*PostgresDB)(nil)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, logger *slog.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Ping the database to verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	logger.Info("successfully connected to PostgreSQL")

	return &PostgresDB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	p.logger.Info("closing PostgreSQL connection")
	return p.DB.Close()
}

// HealthCheck pings the database.
func (p *PostgresDB) HealthCheck(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (p *PostgresDB) withTx(ctx context.Context, reason string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}

	var committed bool
	defer func() {
		if panicErr := recover(); panicErr != nil {
			p.logger.Error("panic in transaction", slog.String("reason", reason), slog.Any("panic", panicErr), slog.String("stack", string(debug.Stack())))
			err = utils.NewAppError(utils.ErrDatabase, "transaction panicked", fmt.Errorf("%v", panicErr))
		}
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			p.logger.Warn("transaction rollback error", slog.String("reason", reason), slog.Any("error", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit transaction ("+reason+")", err)
	}
	committed = true
	return nil
}

// classify maps driver errors onto the application taxonomy.
func classify(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return utils.NewAppError(utils.ErrDuplicate, fmt.Sprintf("%s: %s already exists", message, pqErr.Constraint), err)
		case "check_violation":
			return utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("%s: %s violated", message, pqErr.Constraint), err)
		case "foreign_key_violation":
			return utils.NewAppError(utils.ErrNotFound, fmt.Sprintf("%s: referenced row does not exist", message), err)
		}
	}
	return utils.NewAppError(utils.ErrDatabase, message, err)
}

func requireAffected(result sql.Result, notFound *utils.AppError) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// --- User Methods ---

const userColumns = `id, username, first_name, last_name, password_hash, date_joined`

// CreateUser inserts a new user and fills in its generated ID.
func (p *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now()
	}

	query := `
		INSERT INTO users (username, first_name, last_name, password_hash, date_joined)
		VALUES (:username, :first_name, :last_name, :password_hash, :date_joined)
		RETURNING id
	`
	rows, err := p.DB.NamedQueryContext(ctx, query, user)
	if err != nil {
		return classify(err, "failed to save user")
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&user.ID); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to read user id", err)
		}
	}
	return rows.Err()
}

// GetUser fetches a user by their ID.
func (p *PostgresDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by id", err)
	}
	return &user, nil
}

// GetUserByUsername fetches a user by their unique username.
func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewUserNotFoundError(username)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by username", err)
	}
	return &user, nil
}

// DeleteUser removes a user together with everything that depends on it:
// comments they wrote, comments on their posts, their posts, and follow
// relations in both directions.
func (p *PostgresDB) DeleteUser(ctx context.Context, id int64) error {
	return p.withTx(ctx, "delete user", func(tx *sqlx.Tx) error {
		steps := []struct {
			query   string
			message string
		}{
			{`DELETE FROM comments WHERE author_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`, "failed to delete user comments"},
			{`DELETE FROM posts WHERE author_id = $1`, "failed to delete user posts"},
			{`DELETE FROM follows WHERE user_id = $1 OR author_id = $1`, "failed to delete user follows"},
			{`DELETE FROM group_follows WHERE user_id = $1`, "failed to delete user group follows"},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return utils.NewAppError(utils.ErrDatabase, step.message, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete user", err)
		}
		return requireAffected(result, utils.NewAppError(utils.ErrUserNotFound, "user not found", nil))
	})
}

// --- Group Methods ---

const groupColumns = `id, title, slug, description`

// CreateGroup inserts a new group record.
func (p *PostgresDB) CreateGroup(ctx context.Context, group *models.Group) error {
	query := `INSERT INTO groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`
	err := p.DB.QueryRowxContext(ctx, query, group.Title, group.Slug, group.Description).Scan(&group.ID)
	if err != nil {
		return classify(err, "failed to create group")
	}
	return nil
}

// GetGroup fetches a group by its ID.
func (p *PostgresDB) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	err := p.DB.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrGroupNotFound, "group not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query group by id", err)
	}
	return &group, nil
}

// GetGroupBySlug fetches a group by its slug.
func (p *PostgresDB) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := p.DB.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewGroupNotFoundError(slug)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query group by slug", err)
	}
	return &group, nil
}

// ListGroups fetches all groups ordered by title.
func (p *PostgresDB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups := []*models.Group{}
	err := p.DB.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM groups ORDER BY title, id`)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query all groups", err)
	}
	return groups, nil
}

// DeleteGroup detaches the group's posts, drops its followers and removes
// the group itself.
func (p *PostgresDB) DeleteGroup(ctx context.Context, id int64) error {
	return p.withTx(ctx, "delete group", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET group_id = NULL WHERE group_id = $1`, id); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to detach group posts", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM group_follows WHERE group_id = $1`, id); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete group follows", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
		if err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete group", err)
		}
		return requireAffected(result, utils.NewAppError(utils.ErrGroupNotFound, "group not found", nil))
	})
}

// --- Post Methods ---

const postSelect = `
	SELECT
		p.id, p.text, p.created, p.author_id, p.group_id, p.image,
		u.username AS author_username,
		g.slug AS group_slug,
		g.title AS group_title,
		(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id`

// where renders the filter as a WHERE clause with positional arguments.
func (f PostFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AuthorID != 0 {
		add("p.author_id = $%d", f.AuthorID)
	}
	if f.GroupID != 0 {
		add("p.group_id = $%d", f.GroupID)
	}
	if f.FollowerID != 0 {
		add("p.author_id IN (SELECT author_id FROM follows WHERE user_id = $%d)", f.FollowerID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CreatePost inserts a new post. The creation time is set here once and
// never updated afterwards.
func (p *PostgresDB) CreatePost(ctx context.Context, post *models.Post) error {
	if post.Created.IsZero() {
		post.Created = time.Now()
	}

	query := `
		INSERT INTO posts (text, created, author_id, group_id, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := p.DB.QueryRowxContext(ctx, query, post.Text, post.Created, post.AuthorID, post.GroupID, post.Image).Scan(&post.ID)
	if err != nil {
		return classify(err, "failed to save post")
	}
	return nil
}

// UpdatePost rewrites the editable fields of a post.
func (p *PostgresDB) UpdatePost(ctx context.Context, id int64, changes PostChanges) error {
	query := `UPDATE posts SET text = $1, group_id = $2, image = $3 WHERE id = $4`
	result, err := p.DB.ExecContext(ctx, query, changes.Text, changes.GroupID, changes.Image, id)
	if err != nil {
		return classify(err, "failed to update post")
	}
	return requireAffected(result, utils.NewPostNotFoundError())
}

// GetPost fetches a post by its ID, joined with author and group.
func (p *PostgresDB) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	err := p.DB.GetContext(ctx, &post, postSelect+` WHERE p.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewPostNotFoundError()
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post by id", err)
	}
	return &post, nil
}

// DeletePost removes a post and its comments.
func (p *PostgresDB) DeletePost(ctx context.Context, id int64) error {
	return p.withTx(ctx, "delete post", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete post comments", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete post", err)
		}
		return requireAffected(result, utils.NewPostNotFoundError())
	})
}

// ListPosts returns one window of posts, newest first.
func (p *PostgresDB) ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	where, args := filter.where()
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY p.created DESC, p.id DESC LIMIT $%d OFFSET $%d", postSelect, where, len(args)-1, len(args))

	posts := []*models.Post{}
	if err := p.DB.SelectContext(ctx, &posts, query, args...); err != nil {
		p.logger.Error("error querying posts", slog.Any("filter", filter), slog.Any("error", err))
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query posts", err)
	}
	return posts, nil
}

// CountPosts counts the posts matching filter.
func (p *PostgresDB) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	where, args := filter.where()
	var count int
	if err := p.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts p`+where, args...); err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "failed to count posts", err)
	}
	return count, nil
}

// --- Comment Methods ---

// CreateComment inserts a comment on an existing post.
func (p *PostgresDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Created.IsZero() {
		comment.Created = time.Now()
	}

	query := `INSERT INTO comments (text, created, author_id, post_id) VALUES ($1, $2, $3, $4) RETURNING id`
	err := p.DB.QueryRowxContext(ctx, query, comment.Text, comment.Created, comment.AuthorID, comment.PostID).Scan(&comment.ID)
	if err != nil {
		return classify(err, "failed to save comment")
	}
	return nil
}

// ListComments returns the comments of a post, newest first.
func (p *PostgresDB) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := `
		SELECT c.id, c.text, c.created, c.author_id, c.post_id, u.username AS author_username
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created DESC, c.id DESC
	`
	comments := []*models.Comment{}
	if err := p.DB.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post comments", err)
	}
	return comments, nil
}

// DeleteComment removes a single comment.
func (p *PostgresDB) DeleteComment(ctx context.Context, id int64) error {
	result, err := p.DB.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete comment", err)
	}
	return requireAffected(result, utils.NewAppError(utils.ErrNotFound, "comment not found", nil))
}

// --- Follow Methods ---

// FollowUser creates the follow relation unless it already exists.
func (p *PostgresDB) FollowUser(ctx context.Context, userID, authorID int64) error {
	if userID == authorID {
		return utils.NewAppError(utils.ErrInvalidInput, "users cannot follow themselves", nil)
	}
	query := `INSERT INTO follows (user_id, author_id) VALUES ($1, $2) ON CONFLICT (user_id, author_id) DO NOTHING`
	if _, err := p.DB.ExecContext(ctx, query, userID, authorID); err != nil {
		return classify(err, "failed to follow user")
	}
	return nil
}

// UnfollowUser removes the follow relation; a missing relation is reported
// as not found.
func (p *PostgresDB) UnfollowUser(ctx context.Context, userID, authorID int64) error {
	result, err := p.DB.ExecContext(ctx, `DELETE FROM follows WHERE user_id = $1 AND author_id = $2`, userID, authorID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to unfollow user", err)
	}
	return requireAffected(result, utils.NewAppError(utils.ErrFollowMissing, "follow not found", nil))
}

func (p *PostgresDB) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`
	if err := p.DB.GetContext(ctx, &exists, query, userID, authorID); err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to check follow", err)
	}
	return exists, nil
}

// --- Group Follow Methods ---

func (p *PostgresDB) FollowGroup(ctx context.Context, userID, groupID int64) error {
	query := `INSERT INTO group_follows (user_id, group_id) VALUES ($1, $2) ON CONFLICT (user_id, group_id) DO NOTHING`
	if _, err := p.DB.ExecContext(ctx, query, userID, groupID); err != nil {
		return classify(err, "failed to follow group")
	}
	return nil
}

func (p *PostgresDB) UnfollowGroup(ctx context.Context, userID, groupID int64) error {
	result, err := p.DB.ExecContext(ctx, `DELETE FROM group_follows WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to unfollow group", err)
	}
	return requireAffected(result, utils.NewAppError(utils.ErrFollowMissing, "group follow not found", nil))
}

func (p *PostgresDB) IsFollowingGroup(ctx context.Context, userID, groupID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM group_follows WHERE user_id = $1 AND group_id = $2)`
	if err := p.DB.GetContext(ctx, &exists, query, userID, groupID); err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to check group follow", err)
	}
	return exists, nil
}
