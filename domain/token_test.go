package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenIsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no expiry never expires", func(t *testing.T) {
		tok := Token{AccessToken: "x"}
		assert.False(t, tok.IsExpired(now, 60*time.Second))
	})

	t.Run("within leeway counts as expired", func(t *testing.T) {
		tok := Token{AccessToken: "x", ExpiresAt: now.Add(30 * time.Second)}
		assert.True(t, tok.IsExpired(now, 60*time.Second))
	})

	t.Run("beyond leeway is valid", func(t *testing.T) {
		tok := Token{AccessToken: "x", ExpiresAt: now.Add(2 * time.Minute)}
		assert.False(t, tok.IsExpired(now, 60*time.Second))
	})
}

func TestTokenValid(t *testing.T) {
	assert.True(t, Token{AccessToken: "abc"}.Valid())
	assert.False(t, Token{}.Valid())
}
