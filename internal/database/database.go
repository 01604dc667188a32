package database

import (
	"context"

	"yatube/internal/models"
)

// PostFilter narrows ListPosts/CountPosts. Zero fields are ignored.
type PostFilter struct {
	AuthorID   int64 // posts written by this user
	GroupID    int64 // posts attached to this group
	FollowerID int64 // posts whose author is followed by this user
}

// PostChanges are the fields an edit may touch. Author and creation time
// never change after insert.
type PostChanges struct {
	Text    string
	GroupID *int64
	Image   string
}

// DBAdapter defines the storage contract shared by the PostgreSQL backend
// and the in-memory engine. Uniqueness, self-follow and cascade rules are
// enforced behind this interface, never by its callers.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// Group methods
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error

	// Post methods
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id int64, changes PostChanges) error
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)

	// Comment methods
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID int64) ([]*models.Comment, error)
	DeleteComment(ctx context.Context, id int64) error

	// Follow methods
	FollowUser(ctx context.Context, userID, authorID int64) error
	UnfollowUser(ctx context.Context, userID, authorID int64) error
	IsFollowing(ctx context.Context, userID, authorID int64) (bool, error)

	// Group follow methods
	FollowGroup(ctx context.Context, userID, groupID int64) error
	UnfollowGroup(ctx context.Context, userID, groupID int64) error
	IsFollowingGroup(ctx context.Context, userID, groupID int64) (bool, error)
}
