package actors

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"yatube/internal/models"
	"yatube/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

type relationKey struct {
	userID   int64
	targetID int64
}

// StoreActor owns every table of the in-memory backend. All mutations go
// through its mailbox, so each message (including cascading deletes) is
// applied atomically.
type StoreActor struct {
	users      map[int64]*models.User
	userByName map[string]int64

	groups      map[int64]*models.Group
	groupBySlug map[string]int64

	posts        map[int64]*models.Post
	comments     map[int64]*models.Comment
	follows      map[relationKey]*models.Follow
	groupFollows map[relationKey]*models.GroupFollow

	lastID  int64
	metrics *utils.MetricsCollector
	logger  *slog.Logger
}

// NewStoreActor creates an empty store.
func NewStoreActor(metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &StoreActor{
		users:        make(map[int64]*models.User),
		userByName:   make(map[string]int64),
		groups:       make(map[int64]*models.Group),
		groupBySlug:  make(map[string]int64),
		posts:        make(map[int64]*models.Post),
		comments:     make(map[int64]*models.Comment),
		follows:      make(map[relationKey]*models.Follow),
		groupFollows: make(map[relationKey]*models.GroupFollow),
		metrics:      metrics,
		logger:       logger,
	}
}

// Receive handles incoming messages
func (a *StoreActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("StoreActor started")
	case *actor.Stopping:
		a.logger.Debug("StoreActor stopping")
	case *actor.Stopped:
		a.logger.Debug("StoreActor stopped")
	case *actor.Restarting:
		a.logger.Warn("StoreActor restarting")

	// Users
	case *CreateUserMsg:
		a.handleCreateUser(context, msg)
	case *GetUserMsg:
		a.handleGetUser(context, msg)
	case *DeleteUserMsg:
		a.handleDeleteUser(context, msg)

	// Groups
	case *CreateGroupMsg:
		a.handleCreateGroup(context, msg)
	case *GetGroupMsg:
		a.handleGetGroup(context, msg)
	case *ListGroupsMsg:
		a.handleListGroups(context)
	case *DeleteGroupMsg:
		a.handleDeleteGroup(context, msg)

	// Posts
	case *CreatePostMsg:
		a.handleCreatePost(context, msg)
	case *UpdatePostMsg:
		a.handleUpdatePost(context, msg)
	case *GetPostMsg:
		a.handleGetPost(context, msg)
	case *DeletePostMsg:
		a.handleDeletePost(context, msg)
	case *ListPostsMsg:
		a.handleListPosts(context, msg)
	case *CountPostsMsg:
		context.Respond(len(a.filterPosts(msg.AuthorID, msg.GroupID, msg.FollowerID)))

	// Comments
	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)
	case *ListCommentsMsg:
		a.handleListComments(context, msg)
	case *DeleteCommentMsg:
		a.handleDeleteComment(context, msg)

	// Follows
	case *FollowUserMsg:
		a.handleFollowUser(context, msg)
	case *UnfollowUserMsg:
		a.handleUnfollowUser(context, msg)
	case *IsFollowingMsg:
		_, exists := a.follows[relationKey{msg.UserID, msg.AuthorID}]
		context.Respond(exists)
	case *FollowGroupMsg:
		a.handleFollowGroup(context, msg)
	case *UnfollowGroupMsg:
		a.handleUnfollowGroup(context, msg)
	case *IsFollowingGroupMsg:
		_, exists := a.groupFollows[relationKey{msg.UserID, msg.GroupID}]
		context.Respond(exists)

	case *GetCountsMsg:
		context.Respond(&Counts{
			Users:        len(a.users),
			Groups:       len(a.groups),
			Posts:        len(a.posts),
			Comments:     len(a.comments),
			Follows:      len(a.follows),
			GroupFollows: len(a.groupFollows),
		})

	default:
		a.logger.Warn("StoreActor: unknown message type", slog.String("type", typeName(msg)))
	}
}

func (a *StoreActor) nextID() int64 {
	a.lastID++
	return a.lastID
}

// --- Users ---

func (a *StoreActor) handleCreateUser(context actor.Context, msg *CreateUserMsg) {
	if _, exists := a.userByName[msg.User.Username]; exists {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "username already taken", nil))
		return
	}

	user := msg.User
	user.ID = a.nextID()
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now()
	}
	a.users[user.ID] = &user
	a.userByName[user.Username] = user.ID

	created := user
	context.Respond(&created)
}

func (a *StoreActor) handleGetUser(context actor.Context, msg *GetUserMsg) {
	id := msg.UserID
	if id == 0 {
		var exists bool
		if id, exists = a.userByName[msg.Username]; !exists {
			context.Respond(utils.NewUserNotFoundError(msg.Username))
			return
		}
	}

	user, exists := a.users[id]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "user not found", nil))
		return
	}
	found := *user
	context.Respond(&found)
}

func (a *StoreActor) handleDeleteUser(context actor.Context, msg *DeleteUserMsg) {
	user, exists := a.users[msg.UserID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "user not found", nil))
		return
	}

	for id, post := range a.posts {
		if post.AuthorID == user.ID {
			a.deletePost(id)
		}
	}
	for id, comment := range a.comments {
		if comment.AuthorID == user.ID {
			delete(a.comments, id)
		}
	}
	for key := range a.follows {
		if key.userID == user.ID || key.targetID == user.ID {
			delete(a.follows, key)
		}
	}
	for key := range a.groupFollows {
		if key.userID == user.ID {
			delete(a.groupFollows, key)
		}
	}

	delete(a.userByName, user.Username)
	delete(a.users, user.ID)
	context.Respond(true)
}

// --- Groups ---

func (a *StoreActor) handleCreateGroup(context actor.Context, msg *CreateGroupMsg) {
	if _, exists := a.groupBySlug[msg.Group.Slug]; exists {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "group slug already taken", nil))
		return
	}

	group := msg.Group
	group.ID = a.nextID()
	a.groups[group.ID] = &group
	a.groupBySlug[group.Slug] = group.ID

	created := group
	context.Respond(&created)
}

func (a *StoreActor) handleGetGroup(context actor.Context, msg *GetGroupMsg) {
	id := msg.GroupID
	if id == 0 {
		var exists bool
		if id, exists = a.groupBySlug[msg.Slug]; !exists {
			context.Respond(utils.NewGroupNotFoundError(msg.Slug))
			return
		}
	}

	group, exists := a.groups[id]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrGroupNotFound, "group not found", nil))
		return
	}
	found := *group
	context.Respond(&found)
}

func (a *StoreActor) handleListGroups(context actor.Context) {
	groups := make([]*models.Group, 0, len(a.groups))
	for _, group := range a.groups {
		g := *group
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return groups[i].ID < groups[j].ID
	})
	context.Respond(groups)
}

// handleDeleteGroup keeps the group's posts and detaches them.
func (a *StoreActor) handleDeleteGroup(context actor.Context, msg *DeleteGroupMsg) {
	group, exists := a.groups[msg.GroupID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrGroupNotFound, "group not found", nil))
		return
	}

	for _, post := range a.posts {
		if post.GroupID != nil && *post.GroupID == group.ID {
			post.GroupID = nil
		}
	}
	for key := range a.groupFollows {
		if key.targetID == group.ID {
			delete(a.groupFollows, key)
		}
	}

	delete(a.groupBySlug, group.Slug)
	delete(a.groups, group.ID)
	context.Respond(true)
}

// --- Posts ---

func (a *StoreActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	if _, exists := a.users[msg.Post.AuthorID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "post author does not exist", nil))
		return
	}
	if msg.Post.GroupID != nil {
		if _, exists := a.groups[*msg.Post.GroupID]; !exists {
			context.Respond(utils.NewAppError(utils.ErrGroupNotFound, "post group does not exist", nil))
			return
		}
	}

	post := models.Post{
		ID:       a.nextID(),
		Text:     msg.Post.Text,
		Created:  msg.Post.Created,
		AuthorID: msg.Post.AuthorID,
		GroupID:  copyID(msg.Post.GroupID),
		Image:    msg.Post.Image,
	}
	if post.Created.IsZero() {
		post.Created = time.Now()
	}
	a.posts[post.ID] = &post

	context.Respond(a.view(&post, a.commentCounts()))
}

func (a *StoreActor) handleUpdatePost(context actor.Context, msg *UpdatePostMsg) {
	post, exists := a.posts[msg.PostID]
	if !exists {
		context.Respond(utils.NewPostNotFoundError())
		return
	}
	if msg.GroupID != nil {
		if _, exists := a.groups[*msg.GroupID]; !exists {
			context.Respond(utils.NewAppError(utils.ErrGroupNotFound, "post group does not exist", nil))
			return
		}
	}

	post.Text = msg.Text
	post.GroupID = copyID(msg.GroupID)
	post.Image = msg.Image
	context.Respond(true)
}

func (a *StoreActor) handleGetPost(context actor.Context, msg *GetPostMsg) {
	post, exists := a.posts[msg.PostID]
	if !exists {
		context.Respond(utils.NewPostNotFoundError())
		return
	}
	context.Respond(a.view(post, a.commentCounts()))
}

func (a *StoreActor) handleDeletePost(context actor.Context, msg *DeletePostMsg) {
	if _, exists := a.posts[msg.PostID]; !exists {
		context.Respond(utils.NewPostNotFoundError())
		return
	}
	a.deletePost(msg.PostID)
	context.Respond(true)
}

// deletePost removes a post and its comments.
func (a *StoreActor) deletePost(id int64) {
	for commentID, comment := range a.comments {
		if comment.PostID == id {
			delete(a.comments, commentID)
		}
	}
	delete(a.posts, id)
}

func (a *StoreActor) handleListPosts(context actor.Context, msg *ListPostsMsg) {
	startTime := time.Now()

	matched := a.filterPosts(msg.AuthorID, msg.GroupID, msg.FollowerID)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Created.Equal(matched[j].Created) {
			return matched[i].Created.After(matched[j].Created)
		}
		return matched[i].ID > matched[j].ID
	})

	posts := []*models.Post{}
	if msg.Offset < len(matched) {
		end := len(matched)
		if msg.Limit > 0 && msg.Offset+msg.Limit < end {
			end = msg.Offset + msg.Limit
		}
		counts := a.commentCounts()
		for _, post := range matched[msg.Offset:end] {
			posts = append(posts, a.view(post, counts))
		}
	}

	if a.metrics != nil {
		a.metrics.AddOperationLatency("store_list_posts", time.Since(startTime))
	}
	context.Respond(posts)
}

func (a *StoreActor) filterPosts(authorID, groupID, followerID int64) []*models.Post {
	matched := make([]*models.Post, 0, len(a.posts))
	for _, post := range a.posts {
		if authorID != 0 && post.AuthorID != authorID {
			continue
		}
		if groupID != 0 && (post.GroupID == nil || *post.GroupID != groupID) {
			continue
		}
		if followerID != 0 {
			if _, follows := a.follows[relationKey{followerID, post.AuthorID}]; !follows {
				continue
			}
		}
		matched = append(matched, post)
	}
	return matched
}

func (a *StoreActor) commentCounts() map[int64]int {
	counts := make(map[int64]int, len(a.posts))
	for _, comment := range a.comments {
		counts[comment.PostID]++
	}
	return counts
}

// view returns a detached copy of post with author and group columns joined.
func (a *StoreActor) view(post *models.Post, counts map[int64]int) *models.Post {
	out := *post
	out.GroupID = copyID(post.GroupID)
	out.CommentCount = counts[post.ID]
	if author, exists := a.users[post.AuthorID]; exists {
		out.AuthorUsername = author.Username
	}
	if post.GroupID != nil {
		if group, exists := a.groups[*post.GroupID]; exists {
			slug, title := group.Slug, group.Title
			out.GroupSlug = &slug
			out.GroupTitle = &title
		}
	}
	return &out
}

// --- Comments ---

func (a *StoreActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	if _, exists := a.posts[msg.Comment.PostID]; !exists {
		context.Respond(utils.NewPostNotFoundError())
		return
	}
	author, exists := a.users[msg.Comment.AuthorID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "comment author does not exist", nil))
		return
	}

	comment := msg.Comment
	comment.ID = a.nextID()
	comment.AuthorUsername = author.Username
	if comment.Created.IsZero() {
		comment.Created = time.Now()
	}
	a.comments[comment.ID] = &comment

	created := comment
	context.Respond(&created)
}

func (a *StoreActor) handleListComments(context actor.Context, msg *ListCommentsMsg) {
	comments := []*models.Comment{}
	for _, comment := range a.comments {
		if comment.PostID != msg.PostID {
			continue
		}
		c := *comment
		if author, exists := a.users[c.AuthorID]; exists {
			c.AuthorUsername = author.Username
		}
		comments = append(comments, &c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.After(comments[j].Created)
		}
		return comments[i].ID > comments[j].ID
	})
	context.Respond(comments)
}

func (a *StoreActor) handleDeleteComment(context actor.Context, msg *DeleteCommentMsg) {
	if _, exists := a.comments[msg.CommentID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrNotFound, "comment not found", nil))
		return
	}
	delete(a.comments, msg.CommentID)
	context.Respond(true)
}

// --- Follows ---

func (a *StoreActor) handleFollowUser(context actor.Context, msg *FollowUserMsg) {
	if msg.UserID == msg.AuthorID {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "users cannot follow themselves", nil))
		return
	}
	if _, exists := a.users[msg.UserID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "follower does not exist", nil))
		return
	}
	if _, exists := a.users[msg.AuthorID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "author does not exist", nil))
		return
	}

	key := relationKey{msg.UserID, msg.AuthorID}
	if _, exists := a.follows[key]; !exists {
		a.follows[key] = &models.Follow{ID: a.nextID(), UserID: msg.UserID, AuthorID: msg.AuthorID}
	}
	context.Respond(true)
}

func (a *StoreActor) handleUnfollowUser(context actor.Context, msg *UnfollowUserMsg) {
	key := relationKey{msg.UserID, msg.AuthorID}
	if _, exists := a.follows[key]; !exists {
		context.Respond(utils.NewAppError(utils.ErrFollowMissing, "follow not found", nil))
		return
	}
	delete(a.follows, key)
	context.Respond(true)
}

func (a *StoreActor) handleFollowGroup(context actor.Context, msg *FollowGroupMsg) {
	if _, exists := a.users[msg.UserID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "follower does not exist", nil))
		return
	}
	if _, exists := a.groups[msg.GroupID]; !exists {
		context.Respond(utils.NewAppError(utils.ErrGroupNotFound, "group does not exist", nil))
		return
	}

	key := relationKey{msg.UserID, msg.GroupID}
	if _, exists := a.groupFollows[key]; !exists {
		a.groupFollows[key] = &models.GroupFollow{ID: a.nextID(), UserID: msg.UserID, GroupID: msg.GroupID}
	}
	context.Respond(true)
}

func (a *StoreActor) handleUnfollowGroup(context actor.Context, msg *UnfollowGroupMsg) {
	key := relationKey{msg.UserID, msg.GroupID}
	if _, exists := a.groupFollows[key]; !exists {
		context.Respond(utils.NewAppError(utils.ErrFollowMissing, "group follow not found", nil))
		return
	}
	delete(a.groupFollows, key)
	context.Respond(true)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func typeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
