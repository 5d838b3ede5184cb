package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/7L7K/gsnauth/internal"
)

// ErrStoreUnavailable wraps any Redis failure. Callers must fail closed on
// it; the store never grants on error.
var ErrStoreUnavailable = errors.New("refresh store unavailable")

// ErrFamilyNotFound is returned by Get for unknown families.
var ErrFamilyNotFound = errors.New("refresh family not found")

// Outcome is the result of one consume attempt.
type Outcome int

const (
	// OutcomeNotFound covers unknown, expired, and revoked families.
	OutcomeNotFound Outcome = iota
	// OutcomeWon means this caller consumed the current sequence and the
	// family advanced.
	OutcomeWon
	// OutcomeLost means another caller consumed this exact sequence moments
	// earlier; benign, no revocation.
	OutcomeLost
	// OutcomeReused means the sequence was already superseded: replay. The
	// family is revoked before the outcome is returned.
	OutcomeReused
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	case OutcomeReused:
		return "reused"
	default:
		return "not_found"
	}
}

// Record is the persisted state of one refresh family.
type Record struct {
	FamilyID        string
	Subject         string
	Scopes          []string
	CurrentSequence string
	// PreviousSequence is the last consumed sequence; it is what separates a
	// lost race from a replay.
	PreviousSequence string
	Revoked          bool
	CreatedAt        time.Time
	LastRotatedAt    time.Time
}

// ConsumeResult carries the outcome plus, on Won, the subject, its scopes,
// and the advanced sequence id.
type ConsumeResult struct {
	Outcome     Outcome
	Subject     string
	Scopes      []string
	NewSequence string
}

const (
	consumeStatusNotFound int64 = 0
	consumeStatusWon      int64 = 1
	consumeStatusLost     int64 = 2
	consumeStatusReused   int64 = 3
)

const consumeScript = `
local key = KEYS[1]
local seq = ARGV[1]
local next_seq = ARGV[2]
local now_ms = tonumber(ARGV[3])
local grace_ms = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

if redis.call("EXISTS", key) == 0 then
  return {0}
end

local rec = redis.call("HMGET", key, "sub", "cur", "prev", "revoked", "rotated_at", "scopes")
local sub = rec[1]
local cur = rec[2]
local prev = rec[3]
local revoked = rec[4]
local rotated_at = tonumber(rec[5]) or 0
local scopes = rec[6] or ""

if revoked == "1" then
  return {0}
end

if seq == cur then
  redis.call("HSET", key, "cur", next_seq, "prev", seq, "rotated_at", now_ms)
  redis.call("PEXPIRE", key, ttl_ms)
  return {1, sub, scopes}
end

if prev and seq == prev and grace_ms > 0 and (now_ms - rotated_at) <= grace_ms then
  return {2}
end

redis.call("HSET", key, "revoked", "1")
return {3}
`

var consumeLua = redis.NewScript(consumeScript)

// Store is the Redis-backed refresh-family store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	// retryGrace bounds how long after a rotation the consumed sequence is
	// still treated as a lost race rather than a replay. Zero means strict:
	// every stale sequence is a replay.
	retryGrace time.Duration
}

// NewStore creates a refresh [Store] backed by the given Redis client.
// prefix namespaces all keys; retryGrace selects the lost-vs-reused window.
func NewStore(client redis.UniversalClient, prefix string, retryGrace time.Duration) *Store {
	if prefix == "" {
		prefix = "gsn"
	}
	if retryGrace < 0 {
		retryGrace = 0
	}
	return &Store{
		redis:      client,
		prefix:     prefix,
		retryGrace: retryGrace,
	}
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + ":rf:" + familyID
}

func (s *Store) subjectKey(subject string) string {
	return s.prefix + ":ru:" + subject
}

// CreateFamily starts a new rotation chain for subject and returns its
// family and first sequence ids. The record expires ttl after the last
// rotation.
func (s *Store) CreateFamily(ctx context.Context, subject string, scopes []string, ttl time.Duration) (string, string, error) {
	familyID := internal.NewFamilyID()
	sequenceID, err := internal.NewSequenceID()
	if err != nil {
		return "", "", err
	}

	now := time.Now().UnixMilli()
	familyKey := s.familyKey(familyID)
	subjectKey := s.subjectKey(subject)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, familyKey,
			"sub", subject,
			"scopes", strings.Join(scopes, " "),
			"cur", sequenceID,
			"prev", "",
			"revoked", "0",
			"created_at", now,
			"rotated_at", now,
		)
		pipe.PExpire(ctx, familyKey, ttl)
		pipe.SAdd(ctx, subjectKey, familyID)
		pipe.PExpire(ctx, subjectKey, ttl)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return familyID, sequenceID, nil
}

// TryConsume atomically redeems sequenceID within familyID. On Won the
// record has already advanced to the returned new sequence; on Reused the
// family has already been revoked. ttl re-arms record expiry on Won.
func (s *Store) TryConsume(ctx context.Context, familyID, sequenceID string, ttl time.Duration) (ConsumeResult, error) {
	nextSequence, err := internal.NewSequenceID()
	if err != nil {
		return ConsumeResult{}, err
	}

	raw, err := consumeLua.Run(ctx, s.redis,
		[]string{s.familyKey(familyID)},
		sequenceID,
		nextSequence,
		time.Now().UnixMilli(),
		s.retryGrace.Milliseconds(),
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return ConsumeResult{}, fmt.Errorf("%w: unexpected consume reply %T", ErrStoreUnavailable, raw)
	}
	status, ok := reply[0].(int64)
	if !ok {
		return ConsumeResult{}, fmt.Errorf("%w: unexpected consume status %T", ErrStoreUnavailable, reply[0])
	}

	switch status {
	case consumeStatusWon:
		subject, scopes := "", ""
		if len(reply) > 1 {
			subject, _ = reply[1].(string)
		}
		if len(reply) > 2 {
			scopes, _ = reply[2].(string)
		}
		return ConsumeResult{
			Outcome:     OutcomeWon,
			Subject:     subject,
			Scopes:      strings.Fields(scopes),
			NewSequence: nextSequence,
		}, nil
	case consumeStatusLost:
		return ConsumeResult{Outcome: OutcomeLost}, nil
	case consumeStatusReused:
		return ConsumeResult{Outcome: OutcomeReused}, nil
	default:
		return ConsumeResult{Outcome: OutcomeNotFound}, nil
	}
}

// RevokeFamily marks the family dead. The record is kept for its remaining
// TTL so later redemptions of any of its sequences keep failing.
func (s *Store) RevokeFamily(ctx context.Context, familyID string) error {
	if err := s.redis.HSet(ctx, s.familyKey(familyID), "revoked", "1").Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAllForSubject revokes every live family for the subject and returns
// how many were marked.
func (s *Store) RevokeAllForSubject(ctx context.Context, subject string) (int, error) {
	familyIDs, err := s.redis.SMembers(ctx, s.subjectKey(subject)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(familyIDs) == 0 {
		return 0, nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, familyID := range familyIDs {
			pipe.HSet(ctx, s.familyKey(familyID), "revoked", "1")
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return len(familyIDs), nil
}

// Families returns the ids of every family recorded for the subject,
// revoked ones included.
func (s *Store) Families(ctx context.Context, subject string) ([]string, error) {
	familyIDs, err := s.redis.SMembers(ctx, s.subjectKey(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return familyIDs, nil
}

// Get returns the persisted record for a family.
func (s *Store) Get(ctx context.Context, familyID string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrFamilyNotFound
	}

	return &Record{
		FamilyID:         familyID,
		Subject:          fields["sub"],
		Scopes:           strings.Fields(fields["scopes"]),
		CurrentSequence:  fields["cur"],
		PreviousSequence: fields["prev"],
		Revoked:          fields["revoked"] == "1",
		CreatedAt:        msField(fields, "created_at"),
		LastRotatedAt:    msField(fields, "rotated_at"),
	}, nil
}

func msField(fields map[string]string, name string) time.Time {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
