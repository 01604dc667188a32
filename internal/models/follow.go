package models

// Follow links a follower (UserID) to the followed author (AuthorID).
type Follow struct {
	ID       int64 `json:"id" db:"id"`
	UserID   int64 `json:"userId" db:"user_id"`
	AuthorID int64 `json:"authorId" db:"author_id"`
}

// GroupFollow links a user to a group.
type GroupFollow struct {
	ID      int64 `json:"id" db:"id"`
	UserID  int64 `json:"userId" db:"user_id"`
	GroupID int64 `json:"groupId" db:"group_id"`
}
