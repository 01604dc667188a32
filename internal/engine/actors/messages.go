package actors

import (
	"yatube/internal/models"
)

// Message types for the store actor. Every request is answered with either
// the documented result or a *utils.AppError.
type (
	// Users
	CreateUserMsg struct {
		User models.User
	} // -> *models.User

	GetUserMsg struct {
		UserID   int64
		Username string // used when UserID is zero
	} // -> *models.User

	DeleteUserMsg struct {
		UserID int64
	} // -> bool

	// Groups
	CreateGroupMsg struct {
		Group models.Group
	} // -> *models.Group

	GetGroupMsg struct {
		GroupID int64
		Slug    string // used when GroupID is zero
	} // -> *models.Group

	ListGroupsMsg struct{} // -> []*models.Group

	DeleteGroupMsg struct {
		GroupID int64
	} // -> bool

	// Posts
	CreatePostMsg struct {
		Post models.Post
	} // -> *models.Post

	UpdatePostMsg struct {
		PostID  int64
		Text    string
		GroupID *int64
		Image   string
	} // -> bool

	GetPostMsg struct {
		PostID int64
	} // -> *models.Post

	DeletePostMsg struct {
		PostID int64
	} // -> bool

	ListPostsMsg struct {
		AuthorID   int64
		GroupID    int64
		FollowerID int64
		Limit      int
		Offset     int
	} // -> []*models.Post

	CountPostsMsg struct {
		AuthorID   int64
		GroupID    int64
		FollowerID int64
	} // -> int

	// Comments
	CreateCommentMsg struct {
		Comment models.Comment
	} // -> *models.Comment

	ListCommentsMsg struct {
		PostID int64
	} // -> []*models.Comment

	DeleteCommentMsg struct {
		CommentID int64
	} // -> bool

	// Follows
	FollowUserMsg struct {
		UserID   int64
		AuthorID int64
	} // -> bool

	UnfollowUserMsg struct {
		UserID   int64
		AuthorID int64
	} // -> bool

	IsFollowingMsg struct {
		UserID   int64
		AuthorID int64
	} // -> bool

	FollowGroupMsg struct {
		UserID  int64
		GroupID int64
	} // -> bool

	UnfollowGroupMsg struct {
		UserID  int64
		GroupID int64
	} // -> bool

	IsFollowingGroupMsg struct {
		UserID  int64
		GroupID int64
	} // -> bool

	GetCountsMsg struct{} // -> *Counts
)

// Counts is a snapshot of table sizes.
type Counts struct {
	Users        int
	Groups       int
	Posts        int
	Comments     int
	Follows      int
	GroupFollows int
}
