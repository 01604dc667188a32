package models

import (
	"fmt"
	"time"
)

type Comment struct {
	ID             int64     `json:"id" db:"id"`
	Text           string    `json:"text" db:"text"`
	Created        time.Time `json:"created" db:"created"`
	AuthorID       int64     `json:"authorId" db:"author_id"`
	AuthorUsername string    `json:"authorUsername" db:"author_username"`
	PostID         int64     `json:"postId" db:"post_id"`
}

func (c *Comment) String() string {
	return fmt.Sprintf("%.15s", c.Text)
}
