package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValid(t *testing.T) {
	addr, err := ParseKey("P5.s4")
	require.NoError(t, err)
	assert.Equal(t, Address{Pool: 5, Chan: ChanStatus, Index: 4}, addr)
	assert.Equal(t, "P5.s4", addr.Key())
}

func TestParseKeyInvalid(t *testing.T) {
	cases := []string{"P5.q4", "P5s4", "P.s4", "P5.s", "p5.s4", ""}
	for _, c := range cases {
		_, err := ParseKey(c)
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q should be invalid", c)
	}
}

func TestAddressFamily(t *testing.T) {
	addr := Address{Pool: 6, Chan: ChanValue, Index: 13}
	assert.Equal(t, Family{Pool: 6, Idx: 13}, addr.Family())
}

func TestChannelIsValid(t *testing.T) {
	for _, c := range []Channel{ChanValue, ChanStatus, ChanUnit, ChanMin, ChanMax} {
		assert.True(t, c.IsValid())
	}
	assert.False(t, Channel('q').IsValid())
}
