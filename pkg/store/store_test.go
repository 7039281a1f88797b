package store

import (
	"context"
	"testing"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
)

func sampleHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h := hierarchy.New()
	T := graph.New()
	_ = T.AddNode("t", nil)
	G := graph.New()
	_ = G.AddNode("n", nil)
	if err := h.AddGraph("T", T, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("G", G, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("G", "T", homomorphism.Mapping{"n": "t"}, true, nil); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	if err := s.Set(ctx, "demo", sampleHierarchy(t)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Graphs()) != 2 {
		t.Fatalf("loaded hierarchy has graphs %v", got.Graphs())
	}
	typ, err := got.GetTyping("G", "T")
	if err != nil || typ.M["n"] != "t" {
		t.Fatalf("loaded typing = %v, %v", typ, err)
	}
}

func TestFileStoreMissing(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(ctx, "ghost")
	if !rerr.Is(err, rerr.ErrCodeUnknownID) {
		t.Fatalf("got %v, want HIERARCHY_UNKNOWN_ID", err)
	}
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := sampleHierarchy(t)
	for _, name := range []string{"beta", "alpha"} {
		if err := s.Set(ctx, name, h); err != nil {
			t.Fatal(err)
		}
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("List = %v", names)
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	names, _ = s.List(ctx)
	if len(names) != 1 || names[0] != "beta" {
		t.Fatalf("List after delete = %v", names)
	}
	// Deleting again is fine.
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "../escape", sampleHierarchy(t)); err == nil {
		t.Fatal("expected error for path-like name")
	}
	if _, err := s.Get(ctx, ""); err == nil {
		t.Fatal("expected error for empty name")
	}
}
