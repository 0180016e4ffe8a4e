package feed

import (
	"campusphere/models"

	"github.com/samber/lo"
)

// DeriveVisiblePosts keeps the public posts, preserving their order
func DeriveVisiblePosts(posts []models.Post) []models.Post {
	return lo.Filter(posts, func(p models.Post, _ int) bool {
		return p.Visibility() == models.VisibilityPublic
	})
}
