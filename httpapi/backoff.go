package httpapi

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// loginBackoffSchedule implements backoff.BackOff with the documented
// fixed delay sequence for the duplicate-token login retry: 200ms,
// 400ms, 800ms, each plus 0-150ms jitter, for at most three retries
// (four attempts total).
type loginBackoffSchedule struct {
	attempt int
	rand    *rand.Rand
}

var loginDelays = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}

func newLoginBackoff() *loginBackoffSchedule {
	return &loginBackoffSchedule{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (b *loginBackoffSchedule) NextBackOff() time.Duration {
	if b.attempt >= len(loginDelays) {
		return backoff.Stop
	}
	delay := loginDelays[b.attempt]
	b.attempt++
	jitter := time.Duration(b.rand.Int63n(int64(150 * time.Millisecond)))
	return delay + jitter
}

func (b *loginBackoffSchedule) Reset() {
	b.attempt = 0
}

const loginMaxAttempts = 4
