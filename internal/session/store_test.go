package session

import (
	"os"
	"path/filepath"
	"testing"
)

func tempImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write temp image: %v", err)
	}
	return path
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()

	store := NewStore()
	path := tempImage(t, "a.jpg")

	store.Put(42, path)
	sess, ok := store.Get(42)
	if !ok {
		t.Fatal("expected session after Put")
	}
	if sess.ImagePath != path {
		t.Fatalf("image path mismatch: %q", sess.ImagePath)
	}
	if !sess.AwaitingPrompt {
		t.Fatal("session must be awaiting a prompt while it exists")
	}
}

func TestGetAfterRemoveAbsent(t *testing.T) {
	t.Parallel()

	store := NewStore()
	path := tempImage(t, "a.jpg")

	store.Put(42, path)
	store.Remove(42)

	if _, ok := store.Get(42); ok {
		t.Fatal("expected no session after Remove")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected image file released on Remove, stat err=%v", err)
	}
}

func TestPutSupersedesAndReleasesPrevious(t *testing.T) {
	t.Parallel()

	store := NewStore()
	first := tempImage(t, "first.jpg")
	second := tempImage(t, "second.jpg")

	store.Put(42, first)
	store.Put(42, second)

	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("expected superseded image released, stat err=%v", err)
	}
	sess, ok := store.Get(42)
	if !ok || sess.ImagePath != second {
		t.Fatalf("expected newest session to win: ok=%v path=%q", ok, sess.ImagePath)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}
}

func TestClaimConsumesSession(t *testing.T) {
	t.Parallel()

	store := NewStore()
	path := tempImage(t, "a.jpg")
	store.Put(7, path)

	sess, ok := store.Claim(7)
	if !ok || sess.ImagePath != path {
		t.Fatalf("claim mismatch: ok=%v path=%q", ok, sess.ImagePath)
	}
	if _, ok := store.Get(7); ok {
		t.Fatal("expected session gone after Claim")
	}
	// Ownership moved to the caller: the file must still exist.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("claimed image must not be deleted: %v", err)
	}

	if _, ok := store.Claim(7); ok {
		t.Fatal("expected second Claim to miss")
	}
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	t.Parallel()

	store := NewStore()
	a := tempImage(t, "a.jpg")
	b := tempImage(t, "b.jpg")

	store.Put(1, a)
	store.Put(2, b)
	store.Remove(1)

	if _, ok := store.Get(2); !ok {
		t.Fatal("removing one user's session must not affect another")
	}
}
