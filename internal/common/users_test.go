package common

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type staticLister struct {
	users []string
	err   error
	calls int
}

func (l *staticLister) ListBalanceUsers(ctx context.Context) ([]string, error) {
	l.calls++
	return l.users, l.err
}

func TestResolveUsersWithFilterSkipsLister(t *testing.T) {
	lister := &staticLister{users: []string{"a", "b"}}

	users, err := ResolveUsers(context.Background(), lister, "carol", zap.NewNop())
	if err != nil {
		t.Fatalf("ResolveUsers failed: %v", err)
	}
	if len(users) != 1 || users[0] != "carol" {
		t.Errorf("Expected [carol], got %v", users)
	}
	if lister.calls != 0 {
		t.Errorf("Lister should not be called when a filter is given, got %d calls", lister.calls)
	}
}

func TestResolveUsersListsAll(t *testing.T) {
	lister := &staticLister{users: []string{"alice", "bob"}}

	users, err := ResolveUsers(context.Background(), lister, "", zap.NewNop())
	if err != nil {
		t.Fatalf("ResolveUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %v", users)
	}
}

func TestResolveUsersWrapsListerError(t *testing.T) {
	boom := errors.New("boom")
	lister := &staticLister{err: boom}

	_, err := ResolveUsers(context.Background(), lister, "", zap.NewNop())
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped lister error, got %v", err)
	}
}
