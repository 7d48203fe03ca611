// Package csr models the supervisor-mode CSR file, SBI timer, and
// TLB-shootdown bookkeeping a real RISC-V trap-return path drives.
// Grounded on original_source/kern/env.c's struct Trapframe and
// env_run's inline asm CSR writes, with exact bit-field values taken
// from other_examples' rv64 MMU/SBI model where the teacher (x86-64)
// has no RISC-V CSR analogue of its own.
package csr

// Trapframe_t is the saved architectural state of one env: general
// registers plus the supervisor CSRs env_run reprograms on every
// switch. Field names mirror original_source's struct Trapframe.
type Trapframe_t struct {
	Regs [32]uint64

	Sepc     uint64
	Sstatus  uint64
	Sie      uint64
	Sscratch uint64
	Stvec    uint64
}
