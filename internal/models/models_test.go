package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionWatching(t *testing.T) {
	t.Run("Both content fields set", func(t *testing.T) {
		s := Session{ContentType: ContentAnime, ContentID: "one-piece"}
		assert.True(t, s.Watching())
	})

	t.Run("Content cleared", func(t *testing.T) {
		s := Session{CurrentPage: "/home"}
		assert.False(t, s.Watching())
	})

	t.Run("Partial signal does not count", func(t *testing.T) {
		s := Session{ContentType: ContentDrama}
		assert.False(t, s.Watching())
	})
}
