package realtime

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry(fakeVerifier{})
	c := NewConnection("c1", userA, &recordingSink{})
	r.Register(c)

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if _, err := r.Bind("c1", "g2"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := r.Bind("c1", "g1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	dep, ok := r.Unregister("c1")
	if !ok {
		t.Fatal("first Unregister should succeed")
	}
	if dep.Conn != c || dep.Conn.Identity != userA {
		t.Errorf("departure conn = %+v", dep.Conn)
	}
	if len(dep.Groups) != 2 || dep.Groups[0] != "g1" || dep.Groups[1] != "g2" {
		t.Errorf("departure groups = %v, want [g1 g2]", dep.Groups)
	}
	if len(r.Members("g1")) != 0 || len(r.Members("g2")) != 0 {
		t.Error("group index should be empty after unregister")
	}

	if _, ok := r.Unregister("c1"); ok {
		t.Error("second Unregister should be a no-op")
	}
}

func TestRegistry_BindUnknownConnection(t *testing.T) {
	r := NewRegistry(fakeVerifier{})
	if _, err := r.Bind("ghost", "g1"); !errors.Is(err, ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
	if r.Unbind("ghost", "g1") {
		t.Error("Unbind of unknown connection should report false")
	}
}

func TestRegistry_BindIdempotent(t *testing.T) {
	r := NewRegistry(fakeVerifier{})
	r.Register(NewConnection("c1", userA, &recordingSink{}))

	added, _ := r.Bind("c1", "g1")
	again, _ := r.Bind("c1", "g1")
	if !added || again {
		t.Errorf("added=%v again=%v, want true then false", added, again)
	}
	if n := len(r.Members("g1")); n != 1 {
		t.Errorf("members = %d, want 1", n)
	}
	if !r.Unbind("c1", "g1") || r.Unbind("c1", "g1") {
		t.Error("Unbind should succeed once")
	}
	if r.IsJoined("c1", "g1") {
		t.Error("should no longer be joined")
	}
}

func TestRegistry_Authenticate(t *testing.T) {
	r := NewRegistry(fakeVerifier{"good": userA, "anon": {}})

	id, err := r.Authenticate("good")
	if err != nil || id != userA {
		t.Errorf("good token: %+v, %v", id, err)
	}
	for _, tok := range []string{"", "bad", "anon"} {
		if _, err := r.Authenticate(tok); !errors.Is(err, ErrAuth) {
			t.Errorf("%q: err = %v, want ErrAuth", tok, err)
		}
	}
}

func TestRegistry_GroupsAndAll(t *testing.T) {
	r := NewRegistry(fakeVerifier{})
	r.Register(NewConnection("c1", userA, &recordingSink{}))
	r.Register(NewConnection("c2", userB, &recordingSink{}))
	_, _ = r.Bind("c1", "b")
	_, _ = r.Bind("c1", "a")

	if g := r.Groups("c1"); len(g) != 2 || g[0] != "a" {
		t.Errorf("Groups = %v", g)
	}
	if r.Groups("missing") != nil {
		t.Error("unknown connection should have no groups")
	}
	if len(r.All()) != 2 {
		t.Errorf("All = %d, want 2", len(r.All()))
	}
}
