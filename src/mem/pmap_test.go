package mem

import "testing"

func TestMapPageThenGetPARoundTrips(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	leaf, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	const va = uintptr(0x1000)
	if err := a.MapPage(root, va, leaf, PteR|PteW|PteU); err != nil {
		t.Fatalf("MapPage: %v", err)
	}

	got, ok := a.GetPA(root, va)
	if !ok {
		t.Fatal("GetPA reports unmapped after MapPage")
	}
	if got != leaf {
		t.Fatalf("GetPA = %#x, want %#x", got, leaf)
	}
	if !a.IsMappedPage(root, va) {
		t.Fatal("IsMappedPage false for a mapped page")
	}
}

func TestGetPAUnmappedReturnsFalse(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	if _, ok := a.GetPA(root, 0x2000); ok {
		t.Fatal("GetPA reports mapped for a page never mapped")
	}
	if a.IsMappedPage(root, 0x2000) {
		t.Fatal("IsMappedPage true for a page never mapped")
	}
}

func TestSelfMapResolvesRootThroughItself(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	a.InstallSelfMap(root)

	pa, ok := a.GetPA(root, SelfMapVA())
	if !ok {
		t.Fatal("self-map VA does not resolve")
	}
	if pa&pteAddrMask != root&pteAddrMask {
		t.Fatalf("self-map resolved to %#x, want root %#x", pa, root)
	}
}

func TestDestroyPgdirSkipsGlobalEntries(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	shared, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a.Refup(shared) // simulate the template's own reference

	const va = uintptr(0xc0000000)
	if err := a.MapPage(root, va, shared, PteR|PteU|PteG); err != nil {
		t.Fatalf("MapPage: %v", err)
	}

	before := a.Refcnt(shared)
	a.DestroyPgdir(root)
	if a.Refcnt(shared) != before {
		t.Fatalf("Refcnt(shared) changed from %d to %d across DestroyPgdir of a PteG mapping", before, a.Refcnt(shared))
	}
}

func TestDestroyPgdirFreesOwnedLeaves(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	leaf, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.MapPage(root, 0x1000, leaf, PteR|PteW|PteU); err != nil {
		t.Fatalf("MapPage: %v", err)
	}

	before := a.FreePages()
	a.DestroyPgdir(root)
	if a.FreePages() <= before {
		t.Fatalf("FreePages after DestroyPgdir = %d, want more than %d", a.FreePages(), before)
	}
}

func TestTopIndexOfMatchesVpnAtTopLevel(t *testing.T) {
	a := newTestArena(t)
	root, err := a.AllocPgdir()
	if err != nil {
		t.Fatalf("AllocPgdir: %v", err)
	}
	const va = uintptr(0xc0000000)
	idx := TopIndexOf(va)

	if err := a.MapPage(root, va, root, PteR|PteG|PteU); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	raw := a.TopLevelEntry(root, idx)
	if raw&PteV == 0 {
		t.Fatalf("top-level entry at TopIndexOf(%#x)=%d not valid after mapping that address", va, idx)
	}
}
