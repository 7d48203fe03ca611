// Package asid implements the hardware address-space identifier
// allocator: a small, fixed pool of ASIDs handed out to live
// processes so a TLB shootdown can target one process instead of
// purging every translation.
//
// Grounded directly on original_source/kern/env.c's asid_alloc/
// asid_free: a word-packed bitmap scanned low to high.
package asid

import "defs"

// Asid_t is an allocated address-space identifier.
type Asid_t uint32

// words is the number of uint32 words backing the NASID-bit bitmap.
const words = defs.NASID / 32

// Allocator hands out and reclaims ASIDs. The zero value is not
// usable; construct with New.
type Allocator struct {
	bitmap [words]uint32
}

// New returns an Allocator with ASID 0 already reserved for the
// kernel/template page directory, as env_init does at boot.
func New() *Allocator {
	a := &Allocator{}
	a.bitmap[0] |= 1
	return a
}

// Alloc returns the first clear bit, sets it, and returns its index.
// Deterministic: lowest free first. Never sleeps.
func (a *Allocator) Alloc() (Asid_t, error) {
	for i := 0; i < defs.NASID; i++ {
		idx := i >> 5
		bit := uint32(i & 31)
		if a.bitmap[idx]&(1<<bit) == 0 {
			a.bitmap[idx] |= 1 << bit
			return Asid_t(i), nil
		}
	}
	return 0, defs.New(defs.NoFreeAsid)
}

// Free clears the bit for asid. asid must have been returned by
// Alloc; idempotence on a double free is not required and not
// checked, matching the source's asid_free.
func (a *Allocator) Free(id Asid_t) {
	idx := int(id) >> 5
	bit := uint32(id & 31)
	a.bitmap[idx] &^= 1 << bit
}

// IsSet reports whether id is currently allocated. Exposed for tests
// exercising the invariants in spec section 8.
func (a *Allocator) IsSet(id Asid_t) bool {
	idx := int(id) >> 5
	bit := uint32(id & 31)
	return a.bitmap[idx]&(1<<bit) != 0
}
