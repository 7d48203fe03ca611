package mem

import "testing"

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	a, err := NewArena(0x8000_0000, 16*pageSize)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAllocReturnsZeroedDistinctPages(t *testing.T) {
	a := newTestArena(t)
	p1, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	p2, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if p1 == p2 {
		t.Fatal("two Allocs returned the same page")
	}
	for _, b := range a.Bytes(p2) {
		if b != 0 {
			t.Fatal("freshly allocated page is not zeroed")
		}
	}
}

func TestRefupRefdownRoundTrip(t *testing.T) {
	a := newTestArena(t)
	p, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a.Refup(p)
	if a.Refcnt(p) != 2 {
		t.Fatalf("Refcnt after Refup = %d, want 2", a.Refcnt(p))
	}
	if a.Refdown(p) {
		t.Fatal("Refdown reported free at refcnt 1 after decrementing from 2")
	}
	if !a.Refdown(p) {
		t.Fatal("Refdown did not report free at refcnt 0")
	}
}

func TestAllocExhaustsThenFails(t *testing.T) {
	a := newTestArena(t)
	n := a.FreePages()
	for i := 0; i < n; i++ {
		if _, err := a.Alloc(); err != nil {
			t.Fatalf("Alloc %d of %d: %v", i, n, err)
		}
	}
	if _, err := a.Alloc(); err == nil {
		t.Fatal("Alloc on exhausted arena succeeded")
	}
}

func TestFreedPageIsReusable(t *testing.T) {
	a := newTestArena(t)
	p, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	before := a.FreePages()
	a.Refdown(p)
	if a.FreePages() != before+1 {
		t.Fatalf("FreePages after Refdown = %d, want %d", a.FreePages(), before+1)
	}
}
