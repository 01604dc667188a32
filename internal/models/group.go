package models

type Group struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`
}

func (g *Group) String() string {
	return g.Title
}
