package paramstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragerone/bragerone-go/bus"
	"github.com/bragerone/bragerone-go/domain"
)

func TestUpsertThenFlatten(t *testing.T) {
	s := New()
	_, err := s.Upsert("P5.s4", 42)
	require.NoError(t, err)

	flat := s.Flatten()
	assert.Equal(t, 42, flat["P5.s4"])
}

func TestUpsertInvalidKeySoftIgnored(t *testing.T) {
	s := New()
	fam, err := s.Upsert("P5.q4", 1)
	require.Error(t, err)
	assert.Nil(t, fam)
	assert.Empty(t, s.Flatten())
}

func TestGetFamily(t *testing.T) {
	s := New()
	_, err := s.Upsert("P4.v1", 10)
	require.NoError(t, err)
	_, err = s.Upsert("P4.s1", 1)
	require.NoError(t, err)

	fam, ok := s.GetFamily(4, 1)
	require.True(t, ok)
	assert.Equal(t, 10, fam.Channels[domain.ChanValue])
	assert.Equal(t, 1, fam.Channels[domain.ChanStatus])

	_, ok = s.GetFamily(9, 9)
	assert.False(t, ok)
}

func TestIngestPrime(t *testing.T) {
	s := New()
	payload := map[string]any{
		"DEV1": map[string]any{
			"P4": map[string]any{
				"v1": map[string]any{"value": float64(123), "storable": true},
				"s2": float64(7),
			},
		},
	}

	updates, err := s.IngestPrime(payload)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	flat := s.Flatten()
	assert.Equal(t, float64(123), flat["P4.v1"])
	assert.Equal(t, float64(7), flat["P4.s2"])

	fam, ok := s.GetFamily(4, 1)
	require.True(t, ok)
	require.NotNil(t, fam.Meta.Storable)
	assert.True(t, *fam.Meta.Storable)
}

func TestIngestPrimeSetEquality(t *testing.T) {
	s := New()
	payload := map[string]any{
		"DEV1": map[string]any{
			"P4": map[string]any{"v1": float64(1), "s2": float64(2)},
			"P5": map[string]any{"u3": float64(3)},
		},
	}

	_, err := s.IngestPrime(payload)
	require.NoError(t, err)

	flat := s.Flatten()
	assert.ElementsMatch(t, []string{"P4.v1", "P4.s2", "P5.u3"}, keysOf(flat))
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRunWithBusIgnoresMetaOnly(t *testing.T) {
	s := New()
	b := bus.New()
	sub := b.Subscribe(t.Context())

	done := make(chan struct{})
	go func() {
		s.RunWithBus(t.Context(), sub)
		close(done)
	}()

	b.Publish(domain.ParamUpdate{Pool: 4, Chan: domain.ChanValue, Idx: 1, Value: nil})
	b.Publish(domain.ParamUpdate{Pool: 4, Chan: domain.ChanValue, Idx: 1, Value: 99})

	require.Eventually(t, func() bool {
		flat := s.Flatten()
		v, ok := flat["P4.v1"]
		return ok && v == 99
	}, time.Second, time.Millisecond)

	sub.Unsubscribe()
	<-done
}
