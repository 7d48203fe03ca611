// Package defs holds the build-time configuration and shared error
// kinds referenced by every other package in this module, the same
// role the teacher's own defs package fills for the wider kernel.
package defs

// Riscv32 selects the Sv32/32-bit layout when true. The default build
// targets 64-bit RISC-V (Sv39), matching the upstream kernel's default
// (#ifdef RISCV32 branches in the original source fall through to the
// 64-bit path otherwise).
const Riscv32 = false

const (
	// LOG2NENV is the base-2 exponent of the process table size; NENV
	// must stay a power of two so indexOf(id) can mask the low bits.
	LOG2NENV = 11
	// NENV is the number of process slots.
	NENV = 1 << LOG2NENV
	// NASID is the number of hardware address-space identifiers. Must
	// be a multiple of 32 for the word-packed bitmap.
	NASID = 64
)

const (
	// PageShift is the base-2 exponent of the page size.
	PageShift = 12
	// PageSize is the size of a single page in bytes.
	PageSize = 1 << PageShift
	// PnShift is the per-level page-table index shift L referenced by
	// the self-map formula in spec.md section 4.C. Real Sv32 hardware
	// uses 10 bits/level where Sv39 uses 9; this teaching kernel keeps
	// the shift uniform across both variants to keep the self-map
	// arithmetic identical regardless of build mode.
	PnShift = 9
)

// Virtual memory layout. KERNBASE starts supervisor code/data; the
// user stack grows down from USTACKTOP; KSTACKTOP bounds the kernel
// stack used while a trap is being handled.
const (
	KernBase   = 0x80000000
	MemorySize = 64 * 1024 * 1024 // identity-mapped DRAM window
	USTACKTOP  = 0x80000000
	KSTACKTOP  = 0x80000000 + MemorySize

	// PAGES and ENVS are the canonical virtual bases of the read-only
	// windows through which user code may introspect the physical page
	// array and the process table. Deliberately placed a full top-level
	// entry away from KernBase: original_source hard-codes the
	// top-level index it copies (PENVS/0x1fd/0x1fe) for its own address
	// choices, but this module's KernBase/PAGES/ENVS values would share
	// a single top-level entry with the non-global DRAM identity map if
	// placed the way the original lays them out, which would leak that
	// mapping into every process directory the moment the shared entry
	// was copied. vm.SetupVM derives the index(es) to copy from these
	// addresses directly instead of carrying over the literal constant
	// (see DESIGN.md).
	PAGES = 0xc0000000
	ENVS  = 0xc0100000

	// PageTable is the virtual base of the self-map: the window
	// through which the kernel (and, read-only, user code) can walk a
	// process's own page table. Kept in its own top-level-entry region,
	// distinct from both KernBase and PAGES/ENVS, so installing the
	// self-map entry can never collide with the window copy in
	// vm.SetupVM.
	PageTable = 0x40000000
)

// VirtioMMIOPhys/VirtioMMIOVirt describe the one early MMIO remap
// env_init performs: bus address 0x10001000 appears to supervisor code
// at 0xb0001000. The choice of virtual base is inherited verbatim from
// the original source; no further rationale is recorded there either.
const (
	VirtioMMIOPhys = 0x10001000
	VirtioMMIOVirt = 0xb0001000
	VirtioMMIOSize = 0x8000
)

// Timer cadence. Both constants are carried over unexamined from the
// original source, which hard-codes them without derivation.
const (
	TimerDelta   uint64 = 30000
	TimerInitial uint64 = 20_000_000
)

// Optional judge instrumentation, off by default (zero value). See
// proc.Table.MaxTicks / proc.Table.EndPC.
const (
	SchedMaxTicksDisabled = 0
	SchedEndPCDisabled    = 0
)
