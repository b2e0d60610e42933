package main

import (
	"time"

	"uniqiita/internal/tags"
	"uniqiita/internal/users"
)

// seedLocalUsers returns demo accounts for the in-memory store. The dummy
// accounts match the pattern the dummy purge targets.
func seedLocalUsers() []users.User {
	now := time.Now().UTC()
	avatar := func(s string) *string { return &s }

	return []users.User{
		{
			ID:        1,
			Email:     "admin@uniqiita.local",
			Name:      "Local Admin",
			Role:      users.RoleAdmin,
			CreatedAt: now,
		},
		{
			ID:        2,
			Email:     "moderator@uniqiita.local",
			Name:      "Local Moderator",
			Role:      users.RoleModerator,
			CreatedAt: now.Add(1 * time.Minute),
		},
		{
			ID:        3,
			Email:     "student@uniqiita.local",
			Name:      "Hanako Student",
			AvatarURL: avatar("https://www.gravatar.com/avatar/?d=identicon"),
			Role:      users.RoleStudent,
			CreatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        4,
			Email:     "dummy1@uniqiita.local",
			Name:      "Dummy One",
			Role:      users.RoleStudent,
			CreatedAt: now.Add(3 * time.Minute),
		},
		{
			ID:        5,
			Email:     "dummy2@uniqiita.local",
			Name:      "Dummy Two",
			Role:      users.RoleStudent,
			CreatedAt: now.Add(4 * time.Minute),
		},
	}
}

// seedLocalTags returns a handful of tags so search has something to match.
func seedLocalTags() []tags.Tag {
	now := time.Now().UTC()
	names := []string{"go", "python", "typescript", "machine-learning", "web", "security", "database", "career"}

	out := make([]tags.Tag, 0, len(names))
	for i, name := range names {
		out = append(out, tags.Tag{
			ID:        int64(i + 1),
			Name:      name,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}
