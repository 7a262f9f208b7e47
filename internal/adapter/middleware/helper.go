package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

// buildKey lowercases the actor so checksummed and plain addresses share a key.
func buildKey(method, path, actor, requestID string) string {
	return "idemp:ax:" + strings.ToLower(method) + ":" + path + ":" + strings.ToLower(actor) + ":" + requestID
}

var (
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reActor = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// validReqID accepts lowercase ids only; the id is part of the key verbatim.
func validReqID(id string) bool {
	return reUUID.MatchString(id) || reHex32.MatchString(id)
}

// axHeaders are the request identity headers every mutating call carries.
type axHeaders struct {
	requestID string
	requestAt time.Time
	actor     string
}

// parseHeaders validates Ax-Request-Id, Ax-Request-At (within maxClockSkew of now) and Ax-Actor.
func parseHeaders(h http.Header, now time.Time) (axHeaders, error) {
	var ax axHeaders
	ax.requestID = strings.TrimSpace(h.Get("Ax-Request-Id"))
	if ax.requestID == "" {
		return ax, errors.New("missing Ax-Request-Id")
	}
	if !validReqID(ax.requestID) {
		return ax, errors.New("invalid Ax-Request-Id format")
	}

	at, err := parseAxRequestAt(h.Get("Ax-Request-At"))
	if err != nil {
		return ax, err
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return ax, errors.New("Ax-Request-At too skewed")
	}
	ax.requestAt = at

	ax.actor = strings.TrimSpace(h.Get("Ax-Actor"))
	if ax.actor == "" {
		return ax, errors.New("missing Ax-Actor")
	}
	if !reActor.MatchString(ax.actor) {
		return ax, errors.New("invalid Ax-Actor")
	}
	return ax, nil
}

// parseAxRequestAt accepts:
//   - epoch seconds (e.g., "1736123456")
//   - epoch milliseconds (e.g., "1736123456789")
//   - RFC3339 / RFC3339Nano **with timezone** (e.g., "2025-09-05T10:00:00+07:00" or "...Z")
//
// Naive local timestamps **without** timezone are rejected.
func parseAxRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Ax-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 { // ms
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("Ax-Request-At must be epoch (s/ms) or RFC3339 with timezone")
}

// store keeps one idempEntry per key in redis.
type store struct{ rdb *redis.Client }

func newStore(rdb *redis.Client) *store { return &store{rdb: rdb} }

// reserve writes entry only if key is free, holding it for provisionalLockTTL.
func (s *store) reserve(ctx context.Context, key string, entry idempEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func (s *store) load(ctx context.Context, key string) (idempEntry, error) {
	var e idempEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	return e, json.Unmarshal(v, &e)
}

func (s *store) save(ctx context.Context, key string, entry idempEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

// release drops a reservation so the same request id may be retried.
func (s *store) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
