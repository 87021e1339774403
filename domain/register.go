package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Channel is one of the five register channel letters.
type Channel byte

const (
	ChanValue  Channel = 'v'
	ChanStatus Channel = 's'
	ChanUnit   Channel = 'u'
	ChanMin    Channel = 'n'
	ChanMax    Channel = 'x'
)

// IsValid reports whether c is one of the five recognized channel letters.
func (c Channel) IsValid() bool {
	switch c {
	case ChanValue, ChanStatus, ChanUnit, ChanMin, ChanMax:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return string(rune(c))
}

// Address identifies a single register: pool, channel, index.
type Address struct {
	Pool  int
	Chan  Channel
	Index int
}

// Family is the (pool, idx) tuple that groups one entry per channel.
type Family struct {
	Pool int
	Idx  int
}

var keyPattern = regexp.MustCompile(`^P(\d+)\.([vsunx])(\d+)$`)

// ParseKey parses a wire/cache key of the form "P<pool>.<chan><idx>".
// It returns ErrInvalidKey, wrapped with the offending key, when the key
// does not match the grammar; this is used for soft-ignore on upsert.
func ParseKey(key string) (Address, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	pool, err := strconv.Atoi(m[1])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	idx, err := strconv.Atoi(m[3])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return Address{Pool: pool, Chan: Channel(m[2][0]), Index: idx}, nil
}

// Key renders the address back to its wire/cache key form.
func (a Address) Key() string {
	return fmt.Sprintf("P%d.%s%d", a.Pool, a.Chan, a.Index)
}

// Family returns the (pool, idx) tuple this address belongs to.
func (a Address) Family() Family {
	return Family{Pool: a.Pool, Idx: a.Index}
}
