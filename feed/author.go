package feed

import (
	"hash/fnv"
	"strings"

	"campusphere/identity"
	"campusphere/models"
)

// DefaultAvatarURL is shown for authors without a known profile image
const DefaultAvatarURL = "assets/images/user.png"

// Accent is a two stop gradient used behind placeholder avatars
type Accent [2]string

var accents = []Accent{
	{"#667eea", "#764ba2"},
	{"#f093fb", "#f5576c"},
	{"#4facfe", "#00f2fe"},
	{"#43e97b", "#38f9d7"},
	{"#fa709a", "#fee140"},
	{"#a8edea", "#fed6e3"},
	{"#ff9a9e", "#fecfef"},
	{"#ffecd2", "#fcb69f"},
}

// Author is how a post's author is shown
type Author struct {
	DisplayName string
	AvatarURL   string
	IsViewer    bool
	Accent      Accent
}

// ResolveAuthorPresentation picks the name and avatar for a post. Only the
// viewer's own posts use profile data; everyone else is shown by the local
// part of their email with the default avatar.
func ResolveAuthorPresentation(post models.Post, viewer identity.Viewer) Author {
	author := Author{
		DisplayName: localPart(post.CreatedBy),
		AvatarURL:   DefaultAvatarURL,
		Accent:      AccentFor(post.CreatedBy),
	}

	if !viewer.Is(post.CreatedBy) {
		return author
	}

	author.IsViewer = true
	if viewer.DisplayName != nil && *viewer.DisplayName != "" {
		author.DisplayName = *viewer.DisplayName
	}
	if viewer.AvatarURL != nil && *viewer.AvatarURL != "" {
		author.AvatarURL = *viewer.AvatarURL
	}
	return author
}

// AccentFor picks a stable gradient for an author
func AccentFor(email string) Accent {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return accents[h.Sum32()%uint32(len(accents))]
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
