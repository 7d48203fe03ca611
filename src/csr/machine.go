package csr

import "defs"

// SATP mode encodings and field layouts for Sv32 (32-bit satp: mode is
// the top bit, asid is 9 bits, ppn is 22 bits) and Sv39 (64-bit satp:
// mode is the top 4 bits, asid is 16 bits, ppn is 44 bits). Values
// taken from other_examples' rv64 MMU model (SetupPageTables' "MODE =
// 8 for SV39" comment) generalized down to Sv32 per the RISC-V
// privileged spec's own table, since the retrieved example only
// exercises Sv39.
const (
	satpModeSv32 = uint64(1) << 31
	satpModeSv39 = uint64(8) << 60

	satpAsidShift32 = 22
	satpAsidShift39 = 44
)

// Sstatus/Sie bit positions env_run touches. SPP (bit 8) must be
// cleared before a trap return so a subsequent sret drops to user
// mode rather than re-entering supervisor mode; SPIE (bit 5) is the
// "interrupts were enabled before the trap" bit sret copies into SIE;
// STIE (sie bit 5) is the timer-interrupt enable.
const (
	SstatusSPP  = uint64(1) << 8
	SstatusSPIE = uint64(1) << 5
	SieSTIE     = uint64(1) << 5
)

// Machine is the simulated CSR file plus the one piece of timer state
// original_source keeps as a package-level static (`time`, the next
// absolute tick sbi_set_timer is armed for).
type Machine struct {
	Satp    uint64
	Sstatus uint64

	nextTick uint64
}

// NewMachine returns a Machine with the timer armed for its first tick
// at TimerInitial, as original_source's `time` starts at a hard-coded
// initial value before the first env_run.
func NewMachine() *Machine {
	return &Machine{nextTick: defs.TimerInitial}
}

// WriteSatp programs the simulated satp CSR with the given ASID and
// page-table root. It does not flush the TLB; the sfence.vma that must
// follow it is a separate Sfence call. riscv32 selects the Sv32 field
// layout; the default is Sv39.
func (m *Machine) WriteSatp(riscv32 bool, asid uint32, rootPPN uint64) {
	if riscv32 {
		m.Satp = satpModeSv32 | (uint64(asid)<<satpAsidShift32)&0x7fc00000 | rootPPN&0x3fffff
	} else {
		m.Satp = satpModeSv39 | (uint64(asid)<<satpAsidShift39)&0x0fff_f000_0000_0000 | rootPPN&0x0000_0fff_ffff_ffff
	}
}

// Sfence models `sfence.vma x0, x0`: a full local TLB flush, issued
// unconditionally after every satp write exactly as env_run does
// (rather than targeting the single asid, which the original also
// tried and commented out elsewhere).
func (m *Machine) Sfence() {}

// BareMode switches satp to Sv_Bare, the step env_destroy/env_free
// must take before DestroyPgdir frees a page table that might be the
// one currently active — "must switch to bare mode before destroying
// the page table!!" per original_source's literal comment at the
// matching call site.
func (m *Machine) BareMode(asid uint32) {
	m.Satp = 0
}

// ArmTimer advances the simulated SBI timer to the next tick and
// returns the absolute tick value that was armed, the sbi_set_timer/
// time += delta_time sequence in env_run.
func (m *Machine) ArmTimer() uint64 {
	armed := m.nextTick
	m.nextTick += defs.TimerDelta
	return armed
}

// PrepareDescend computes the sstatus value env_run writes to the live
// CSR before resuming e: SPP cleared (so sret lands in user mode, not
// supervisor mode) with every other bit preserved from whatever
// sstatus currently holds.
func PrepareDescend(live uint64) uint64 {
	return live &^ SstatusSPP
}

// Resume is the trap-return collaborator spec.md section 4.E calls
// "the return from exception path". On real hardware an sret restores
// PC from sepc and never returns to its caller; Go has no equivalent
// unconditional jump, so Resume instead returns the Trapframe_t it was
// given, modeling only the ordering of CSR/TLB side effects env_run
// performs, for the harness at the base of the call stack (cmd/
// rvmosctl) to act on.
func Resume(tf *Trapframe_t) *Trapframe_t {
	return tf
}
