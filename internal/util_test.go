package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructPath(t *testing.T) {
	parents := map[string]string{"d": "c", "c": "b", "b": "a", "a": "a"}
	parentOf := func(n string) (string, bool) {
		p, ok := parents[n]
		return p, ok
	}

	t.Run("walks back to start", func(t *testing.T) {
		path, ok := ReconstructPath(parentOf, "d", "a", 10)
		assert.True(t, ok)
		assert.Equal(t, []string{"a", "b", "c", "d"}, path)
	})

	t.Run("goal is start", func(t *testing.T) {
		path, ok := ReconstructPath(parentOf, "a", "a", 10)
		assert.True(t, ok)
		assert.Equal(t, []string{"a"}, path)
	})

	t.Run("missing link", func(t *testing.T) {
		path, ok := ReconstructPath(parentOf, "d", "z", 10)
		assert.False(t, ok)
		assert.Nil(t, path)
	})

	t.Run("cycle hits the limit", func(t *testing.T) {
		cyclic := func(n string) (string, bool) {
			if n == "x" {
				return "y", true
			}
			return "x", true
		}
		_, ok := ReconstructPath(cyclic, "x", "start", 5)
		assert.False(t, ok)
	})
}
