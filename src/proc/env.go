// Package proc implements the process table: slot allocation, id
// minting, lookup, creation, and teardown. Grounded throughout on
// original_source/kern/env.c's struct Env, env_init, env_alloc,
// envid2env, env_create, env_free, and env_destroy.
package proc

import (
	"asid"
	"csr"
	"defs"
	"mem"
)

// Status is an Env's lifecycle state: FREE --Alloc--> NOT_RUNNABLE
// --Create--> RUNNABLE, per spec.md section 3/4.E. The signal-pending
// states original_source's header also declares are never set by any
// operation spec.md names, so they are not reproduced here.
type Status int

const (
	StatusFree Status = iota
	StatusNotRunnable
	StatusRunnable
)

// Env is one process-table slot. Field names mirror original_source's
// struct Env, translated to Go's exported-field convention.
type Env struct {
	Id       uint32
	Asid     asid.Asid_t
	ParentId uint32
	Status   Status
	Runs     uint64

	Pgdir mem.Pa_t
	Tf    csr.Trapframe_t
}

// indexOf extracts the process-table slot index encoded in the low
// LOG2NENV bits of id, the ENVX macro.
func indexOf(id uint32) int {
	return int(id & (defs.NENV - 1))
}
