package paramstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bragerone/bragerone-go/domain"
)

// IngestPrime consumes the REST prime payload shape:
//
//	{ <devid>: { <pool "P<n>">: { <"<chan><idx>"> : value | {value, storable?, createdAt?, ...} } } }
//
// For dict-shaped entries it stores Value and preserves the recognized
// metadata keys on the family. It returns one ParamUpdate per channel
// entry found, in map-iteration order (which is not stable between
// calls), for the caller to publish onto the bus.
func (s *Store) IngestPrime(payload map[string]any) ([]domain.ParamUpdate, error) {
	var updates []domain.ParamUpdate

	for devid, poolsAny := range payload {
		pools, ok := poolsAny.(map[string]any)
		if !ok {
			return updates, fmt.Errorf("%w: device %q: expected object of pools", domain.ErrMalformedData, devid)
		}

		for poolKey, chansAny := range pools {
			pool, err := parsePoolKey(poolKey)
			if err != nil {
				continue // soft-ignore, matching upsert's key-grammar tolerance
			}

			chans, ok := chansAny.(map[string]any)
			if !ok {
				continue
			}

			for chanKey, raw := range chans {
				addr, err := domain.ParseKey(fmt.Sprintf("P%d.%s", pool, chanKey))
				if err != nil {
					continue
				}

				value, meta := extractValueAndMeta(raw)
				s.upsertAddress(addr, value, meta)

				updates = append(updates, domain.ParamUpdate{
					DevID:     devid,
					Pool:      addr.Pool,
					Chan:      addr.Chan,
					Idx:       addr.Index,
					Value:     value,
					Meta:      meta,
					Timestamp: time.Now(),
				})
			}
		}
	}

	return updates, nil
}

func parsePoolKey(key string) (int, error) {
	if len(key) < 2 || key[0] != 'P' {
		return 0, domain.ErrInvalidKey
	}
	return strconv.Atoi(key[1:])
}

// extractValueAndMeta pulls value plus the recognized metadata keys
// (storable, createdAt, previousCreatedAt, updatedAt, updatedAtClient,
// expire, average) out of a dict-shaped prime entry.
func extractValueAndMeta(raw any) (any, domain.FamilyMeta) {
	dict, ok := raw.(map[string]any)
	if !ok {
		return raw, domain.FamilyMeta{}
	}

	value, hasValue := dict["value"]
	if !hasValue {
		value = nil
	}

	var meta domain.FamilyMeta
	if b, ok := dict["storable"].(bool); ok {
		meta.Storable = &b
	}
	if t, ok := parseTimeField(dict["createdAt"]); ok {
		meta.CreatedAt = &t
	}
	if t, ok := parseTimeField(dict["previousCreatedAt"]); ok {
		meta.PreviousCreatedAt = &t
	}
	if t, ok := parseTimeField(dict["updatedAt"]); ok {
		meta.UpdatedAt = &t
	}
	if t, ok := parseTimeField(dict["updatedAtClient"]); ok {
		meta.UpdatedAtClient = &t
	}
	if t, ok := parseTimeField(dict["expire"]); ok {
		meta.Expire = &t
	}
	if f, ok := toFloat(dict["average"]); ok {
		meta.Average = &f
	}

	return value, meta
}

func parseTimeField(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
