package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cvdesk/taskq/kv"
	"github.com/cvdesk/taskq/kv/memory"
)

func TestGetSet_RoundTrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestGet_MissingKey(t *testing.T) {
	s := memory.New()

	_, err := s.Get(context.Background(), "absent")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get(absent) error = %v, want kv.ErrNotFound", err)
	}
}

func TestSet_TTLExpires(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after ttl error = %v, want kv.ErrNotFound", err)
	}
}

func TestIncrement_StartsAtOne(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "counter")
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Errorf("Increment = %d, want %d", got, want)
		}
	}
}

func TestExpire_OnCounter(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if _, err := s.Increment(ctx, "counter"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := s.Expire(ctx, "counter", 10*time.Millisecond); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	// The counter should restart from scratch after expiry.
	got, err := s.Increment(ctx, "counter")
	if err != nil {
		t.Fatalf("Increment after expiry: %v", err)
	}
	if got != 1 {
		t.Errorf("Increment after expiry = %d, want 1", got)
	}
}

func TestList_FIFO(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := s.ListPush(ctx, "list", v); err != nil {
			t.Fatalf("ListPush(%q): %v", v, err)
		}
	}

	n, err := s.ListLength(ctx, "list")
	if err != nil {
		t.Fatalf("ListLength: %v", err)
	}
	if n != 3 {
		t.Fatalf("ListLength = %d, want 3", n)
	}

	for _, want := range []string{"a", "b", "c"} {
		got, popErr := s.ListPop(ctx, "list")
		if popErr != nil {
			t.Fatalf("ListPop: %v", popErr)
		}
		if got != want {
			t.Errorf("ListPop = %q, want %q", got, want)
		}
	}

	if _, err = s.ListPop(ctx, "list"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("ListPop on empty list error = %v, want kv.ErrNotFound", err)
	}
}

func TestSetOps(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.SetAdd(ctx, "s", "m1"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	if err := s.SetAdd(ctx, "s", "m2"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	// Duplicates are idempotent.
	if err := s.SetAdd(ctx, "s", "m1"); err != nil {
		t.Fatalf("SetAdd duplicate: %v", err)
	}

	members, err := s.SetMembers(ctx, "s")
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 2 || members[0] != "m1" || members[1] != "m2" {
		t.Errorf("SetMembers = %v, want [m1 m2]", members)
	}

	if err = s.SetRemove(ctx, "s", "m1"); err != nil {
		t.Fatalf("SetRemove: %v", err)
	}
	members, err = s.SetMembers(ctx, "s")
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "m2" {
		t.Errorf("SetMembers after remove = %v, want [m2]", members)
	}
}

func TestKeys_GlobPattern(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	seed := []string{"image:1", "image:2", "other:1"}
	for _, key := range seed {
		if err := s.Set(ctx, key, "x", 0); err != nil {
			t.Fatalf("Set(%q): %v", key, err)
		}
	}

	keys, err := s.Keys(ctx, "image:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "image:1" || keys[1] != "image:2" {
		t.Errorf("Keys(image:*) = %v, want [image:1 image:2]", keys)
	}
}

func TestKeys_SkipsExpired(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "short:1", "x", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "short:2", "x", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	keys, err := s.Keys(ctx, "short:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "short:2" {
		t.Errorf("Keys = %v, want [short:2]", keys)
	}
}

func TestDelete_AllNamespaces(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "v", "x", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.ListPush(ctx, "l", "x"); err != nil {
		t.Fatalf("ListPush: %v", err)
	}
	if err := s.SetAdd(ctx, "s", "x"); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}

	if err := s.Delete(ctx, "v", "l", "s"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Get(ctx, "v"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want kv.ErrNotFound", err)
	}
	if n, _ := s.ListLength(ctx, "l"); n != 0 {
		t.Errorf("ListLength after delete = %d, want 0", n)
	}
	if members, _ := s.SetMembers(ctx, "s"); members != nil {
		t.Errorf("SetMembers after delete = %v, want nil", members)
	}
}
