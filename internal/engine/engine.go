package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"yatube/internal/database"
	"yatube/internal/engine/actors"
	"yatube/internal/models"
	"yatube/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// DefaultRequestTimeout bounds a single round trip to the store actor.
const DefaultRequestTimeout = 5 * time.Second

// Engine is the in-memory storage backend. It owns an actor system with a
// single store actor and talks to it with request futures.
type Engine struct {
	system  *actor.ActorSystem
	store   *actor.PID
	metrics *utils.MetricsCollector
	logger  *slog.Logger
	timeout time.Duration
}

var _ database.DBAdapter = (*Engine)(nil)

// NewEngine spawns the store actor on system.
func NewEngine(system *actor.ActorSystem, metrics *utils.MetricsCollector, logger *slog.Logger) *Engine {
	storeProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewStoreActor(metrics, logger)
	})
	storePID := system.Root.Spawn(storeProps)

	return &Engine{
		system:  system,
		store:   storePID,
		metrics: metrics,
		logger:  logger,
		timeout: DefaultRequestTimeout,
	}
}

// NewMemoryDB builds an engine on a fresh actor system.
func NewMemoryDB(metrics *utils.MetricsCollector, logger *slog.Logger) *Engine {
	return NewEngine(actor.NewActorSystem(), metrics, logger)
}

// GetStoreActor returns the PID of the store actor
func (e *Engine) GetStoreActor() *actor.PID {
	return e.store
}

// SetRequestTimeout overrides DefaultRequestTimeout.
func (e *Engine) SetRequestTimeout(d time.Duration) {
	e.timeout = d
}

// request sends msg to the store actor and waits for the reply. AppErrors
// sent back by the actor are returned as errors.
func (e *Engine) request(ctx context.Context, op string, msg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	startTime := time.Now()
	result, err := e.system.Root.RequestFuture(e.store, msg, timeout).Result()
	if e.metrics != nil {
		e.metrics.AddOperationLatency(op, time.Since(startTime))
	}
	if err != nil {
		if errors.Is(err, actor.ErrTimeout) {
			e.logger.Error("store actor timed out", slog.String("op", op), slog.Duration("timeout", timeout))
			return nil, utils.NewStoreTimeoutError(op)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "store request failed: "+op, err)
	}

	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

func (e *Engine) exec(ctx context.Context, op string, msg interface{}) error {
	_, err := e.request(ctx, op, msg)
	return err
}

func unexpected(op string, result interface{}) error {
	return utils.NewAppError(utils.ErrDatabase, "unexpected store response for "+op, nil)
}

// Close stops the store actor.
func (e *Engine) Close(ctx context.Context) error {
	return e.system.Root.StopFuture(e.store).Wait()
}

// HealthCheck reports whether the store actor still answers.
func (e *Engine) HealthCheck(ctx context.Context) error {
	_, err := e.Counts(ctx)
	return err
}

// Counts reports table sizes, used by the seeder and the health endpoint.
func (e *Engine) Counts(ctx context.Context) (*actors.Counts, error) {
	result, err := e.request(ctx, "counts", &actors.GetCountsMsg{})
	if err != nil {
		return nil, err
	}
	counts, ok := result.(*actors.Counts)
	if !ok {
		return nil, unexpected("counts", result)
	}
	return counts, nil
}

// --- Users ---

func (e *Engine) CreateUser(ctx context.Context, user *models.User) error {
	result, err := e.request(ctx, "create_user", &actors.CreateUserMsg{User: *user})
	if err != nil {
		return err
	}
	created, ok := result.(*models.User)
	if !ok {
		return unexpected("create_user", result)
	}
	*user = *created
	return nil
}

func (e *Engine) getUser(ctx context.Context, msg *actors.GetUserMsg) (*models.User, error) {
	result, err := e.request(ctx, "get_user", msg)
	if err != nil {
		return nil, err
	}
	user, ok := result.(*models.User)
	if !ok {
		return nil, unexpected("get_user", result)
	}
	return user, nil
}

func (e *Engine) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id == 0 {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found", nil)
	}
	return e.getUser(ctx, &actors.GetUserMsg{UserID: id})
}

func (e *Engine) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return e.getUser(ctx, &actors.GetUserMsg{Username: username})
}

func (e *Engine) DeleteUser(ctx context.Context, id int64) error {
	return e.exec(ctx, "delete_user", &actors.DeleteUserMsg{UserID: id})
}

// --- Groups ---

func (e *Engine) CreateGroup(ctx context.Context, group *models.Group) error {
	result, err := e.request(ctx, "create_group", &actors.CreateGroupMsg{Group: *group})
	if err != nil {
		return err
	}
	created, ok := result.(*models.Group)
	if !ok {
		return unexpected("create_group", result)
	}
	*group = *created
	return nil
}

func (e *Engine) getGroup(ctx context.Context, msg *actors.GetGroupMsg) (*models.Group, error) {
	result, err := e.request(ctx, "get_group", msg)
	if err != nil {
		return nil, err
	}
	group, ok := result.(*models.Group)
	if !ok {
		return nil, unexpected("get_group", result)
	}
	return group, nil
}

func (e *Engine) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	if id == 0 {
		return nil, utils.NewAppError(utils.ErrGroupNotFound, "group not found", nil)
	}
	return e.getGroup(ctx, &actors.GetGroupMsg{GroupID: id})
}

func (e *Engine) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return e.getGroup(ctx, &actors.GetGroupMsg{Slug: slug})
}

func (e *Engine) ListGroups(ctx context.Context) ([]*models.Group, error) {
	result, err := e.request(ctx, "list_groups", &actors.ListGroupsMsg{})
	if err != nil {
		return nil, err
	}
	groups, ok := result.([]*models.Group)
	if !ok {
		return nil, unexpected("list_groups", result)
	}
	return groups, nil
}

func (e *Engine) DeleteGroup(ctx context.Context, id int64) error {
	return e.exec(ctx, "delete_group", &actors.DeleteGroupMsg{GroupID: id})
}

// --- Posts ---

func (e *Engine) CreatePost(ctx context.Context, post *models.Post) error {
	result, err := e.request(ctx, "create_post", &actors.CreatePostMsg{Post: *post})
	if err != nil {
		return err
	}
	created, ok := result.(*models.Post)
	if !ok {
		return unexpected("create_post", result)
	}
	*post = *created
	return nil
}

func (e *Engine) UpdatePost(ctx context.Context, id int64, changes database.PostChanges) error {
	return e.exec(ctx, "update_post", &actors.UpdatePostMsg{
		PostID:  id,
		Text:    changes.Text,
		GroupID: changes.GroupID,
		Image:   changes.Image,
	})
}

func (e *Engine) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	result, err := e.request(ctx, "get_post", &actors.GetPostMsg{PostID: id})
	if err != nil {
		return nil, err
	}
	post, ok := result.(*models.Post)
	if !ok {
		return nil, unexpected("get_post", result)
	}
	return post, nil
}

func (e *Engine) DeletePost(ctx context.Context, id int64) error {
	return e.exec(ctx, "delete_post", &actors.DeletePostMsg{PostID: id})
}

func (e *Engine) ListPosts(ctx context.Context, filter database.PostFilter, limit, offset int) ([]*models.Post, error) {
	result, err := e.request(ctx, "list_posts", &actors.ListPostsMsg{
		AuthorID:   filter.AuthorID,
		GroupID:    filter.GroupID,
		FollowerID: filter.FollowerID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	posts, ok := result.([]*models.Post)
	if !ok {
		return nil, unexpected("list_posts", result)
	}
	return posts, nil
}

func (e *Engine) CountPosts(ctx context.Context, filter database.PostFilter) (int, error) {
	result, err := e.request(ctx, "count_posts", &actors.CountPostsMsg{
		AuthorID:   filter.AuthorID,
		GroupID:    filter.GroupID,
		FollowerID: filter.FollowerID,
	})
	if err != nil {
		return 0, err
	}
	count, ok := result.(int)
	if !ok {
		return 0, unexpected("count_posts", result)
	}
	return count, nil
}

// --- Comments ---

func (e *Engine) CreateComment(ctx context.Context, comment *models.Comment) error {
	result, err := e.request(ctx, "create_comment", &actors.CreateCommentMsg{Comment: *comment})
	if err != nil {
		return err
	}
	created, ok := result.(*models.Comment)
	if !ok {
		return unexpected("create_comment", result)
	}
	*comment = *created
	return nil
}

func (e *Engine) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	result, err := e.request(ctx, "list_comments", &actors.ListCommentsMsg{PostID: postID})
	if err != nil {
		return nil, err
	}
	comments, ok := result.([]*models.Comment)
	if !ok {
		return nil, unexpected("list_comments", result)
	}
	return comments, nil
}

func (e *Engine) DeleteComment(ctx context.Context, id int64) error {
	return e.exec(ctx, "delete_comment", &actors.DeleteCommentMsg{CommentID: id})
}

// --- Follows ---

func (e *Engine) FollowUser(ctx context.Context, userID, authorID int64) error {
	return e.exec(ctx, "follow_user", &actors.FollowUserMsg{UserID: userID, AuthorID: authorID})
}

func (e *Engine) UnfollowUser(ctx context.Context, userID, authorID int64) error {
	return e.exec(ctx, "unfollow_user", &actors.UnfollowUserMsg{UserID: userID, AuthorID: authorID})
}

func (e *Engine) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	return e.check(ctx, "is_following", &actors.IsFollowingMsg{UserID: userID, AuthorID: authorID})
}

func (e *Engine) FollowGroup(ctx context.Context, userID, groupID int64) error {
	return e.exec(ctx, "follow_group", &actors.FollowGroupMsg{UserID: userID, GroupID: groupID})
}

func (e *Engine) UnfollowGroup(ctx context.Context, userID, groupID int64) error {
	return e.exec(ctx, "unfollow_group", &actors.UnfollowGroupMsg{UserID: userID, GroupID: groupID})
}

func (e *Engine) IsFollowingGroup(ctx context.Context, userID, groupID int64) (bool, error) {
	return e.check(ctx, "is_following_group", &actors.IsFollowingGroupMsg{UserID: userID, GroupID: groupID})
}

func (e *Engine) check(ctx context.Context, op string, msg interface{}) (bool, error) {
	result, err := e.request(ctx, op, msg)
	if err != nil {
		return false, err
	}
	answer, ok := result.(bool)
	if !ok {
		return false, unexpected(op, result)
	}
	return answer, nil
}
