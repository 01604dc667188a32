package models

import (
	"fmt"
	"time"
)

// PostStringTemplate is the text representation of a post:
// truncated text, author username, creation date and group title.
const PostStringTemplate = "%.15s %s %s %s"

const dateLayout = "2006-01-02"

type Post struct {
	ID       int64     `json:"id" db:"id"`
	Text     string    `json:"text" db:"text"`
	Created  time.Time `json:"created" db:"created"`
	AuthorID int64     `json:"authorId" db:"author_id"`
	GroupID  *int64    `json:"groupId,omitempty" db:"group_id"`
	Image    string    `json:"image,omitempty" db:"image"`

	// Joined columns, read-only
	AuthorUsername string  `json:"authorUsername" db:"author_username"`
	GroupSlug      *string `json:"groupSlug,omitempty" db:"group_slug"`
	GroupTitle     *string `json:"groupTitle,omitempty" db:"group_title"`
	CommentCount   int     `json:"commentCount" db:"comment_count"`
}

func (p *Post) String() string {
	group := ""
	if p.GroupTitle != nil {
		group = *p.GroupTitle
	}
	return fmt.Sprintf(PostStringTemplate, p.Text, p.AuthorUsername, p.Created.Format(dateLayout), group)
}

// OwnerID implements the ownership contract used by permission checks.
func (p *Post) OwnerID() int64 {
	return p.AuthorID
}

// HasGroup reports whether the post is attached to a group.
func (p *Post) HasGroup() bool {
	return p.GroupID != nil
}

// Slug returns the group slug, or "" when the post has no group.
func (p *Post) Slug() string {
	if p.GroupSlug == nil {
		return ""
	}
	return *p.GroupSlug
}

// GroupName returns the group title, or "" when the post has no group.
func (p *Post) GroupName() string {
	if p.GroupTitle == nil {
		return ""
	}
	return *p.GroupTitle
}
