// Package shadow persists per-user like state independently of the
// transient feed cache, so a user's likes survive restarts and show up
// before the next full refetch.
package shadow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

// Store records "has user U liked article A" as a hash per user. Keying by
// user first keeps identities separate; several accounts may share one
// device, and clearing one must not touch the others.
type Store struct {
	kv kv.Store
}

func New(backend kv.Store) *Store {
	return &Store{kv: backend}
}

func userKey(userID string) string {
	return "likes:" + userID
}

func articleField(articleID int64) string {
	return strconv.FormatInt(articleID, 10)
}

// SetLiked records the server-confirmed like state. Writes are idempotent:
// recording the value already stored issues no write.
func (s *Store) SetLiked(ctx context.Context, userID string, articleID int64, liked bool) error {
	if userID == "" {
		return nil
	}
	key, field := userKey(userID), articleField(articleID)
	want := flagValue(liked)

	current, err := s.kv.HGet(ctx, key, field)
	if err == nil && string(current) == want {
		return nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("read like state: %w", err)
	}
	if err := s.kv.HSet(ctx, key, field, []byte(want)); err != nil {
		return fmt.Errorf("write like state: %w", err)
	}
	return nil
}

// Liked reports the recorded like state for one article. The second return
// distinguishes "recorded false" from "never recorded".
func (s *Store) Liked(ctx context.Context, userID string, articleID int64) (bool, bool, error) {
	if userID == "" {
		return false, false, nil
	}
	value, err := s.kv.HGet(ctx, userKey(userID), articleField(articleID))
	if errors.Is(err, kv.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read like state: %w", err)
	}
	return string(value) == "1", true, nil
}

// All returns every recorded like flag for a user, keyed by article id.
func (s *Store) All(ctx context.Context, userID string) (map[int64]bool, error) {
	if userID == "" {
		return nil, nil
	}
	fields, err := s.kv.HGetAll(ctx, userKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read like state: %w", err)
	}
	out := make(map[int64]bool, len(fields))
	for field, value := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		out[id] = string(value) == "1"
	}
	return out, nil
}

// ClearUser drops every recorded flag for one user, for logout. Other
// users' state is untouched.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.kv.Del(ctx, userKey(userID)); err != nil {
		return fmt.Errorf("clear like state: %w", err)
	}
	return nil
}

func flagValue(liked bool) string {
	if liked {
		return "1"
	}
	return "0"
}
