package handlers

import "yatube/internal/models"

// Owned is implemented by entities that belong to a single author.
type Owned interface {
	OwnerID() int64
}

var _ Owned = (*models.Post)(nil)

// CanModify reports whether user may edit or delete entity. Anonymous users
// never can.
func CanModify(entity Owned, user *models.User) bool {
	if entity == nil || user == nil {
		return false
	}
	return entity.OwnerID() == user.ID
}
