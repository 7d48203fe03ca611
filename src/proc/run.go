package proc

import (
	"csr"
	"defs"
	"mem"
)

// Run is the context switch: it installs e as the current env,
// reprograms the simulated satp with e's ASID and page-table root,
// arms the next SBI timer tick, and hands e's trapframe to
// csr.Resume. Ordering follows env_run exactly (see DESIGN.md): curenv
// reassignment, then sepc/sstatus, then the kernel-window restitch
// (Step 5, distinct from the pages/envs restitch below — env_run
// copies these two windows at two separate points), then satp +
// sfence.vma, then the pages/envs restitch (Step 7), then stvec, then
// the timer arm, then the interrupt-enable bits set in the *saved*
// frame rather than a live CSR.
//
// Saving the outgoing env's trapframe — env_run's Step 1, copying the
// live kernel-stack frame back into curenv->env_tf — has no
// counterpart here: this simulation has no separate live register
// file distinct from the Env's own Tf for a trap to have mutated, so
// there is nothing to copy back.
func (t *Table) Run(e *Env) *csr.Trapframe_t {
	if hook := t.preRun(e); hook != nil {
		return hook
	}

	t.curenv = indexOf(e.Id)
	e.Runs++

	e.Tf.Sstatus = csr.PrepareDescend(e.Tf.Sstatus)

	t.restitchKernelWindow(e.Pgdir)

	t.mach.WriteSatp(defs.Riscv32, uint32(e.Asid), uint64(e.Pgdir)>>defs.PageShift)
	t.mach.Sfence()

	t.restitchPagesEnvsWindow(e.Pgdir)

	e.Tf.Stvec = trapVector

	t.mach.ArmTimer()
	e.Tf.Sie |= csr.SieSTIE
	e.Tf.Sstatus |= csr.SstatusSPIE

	return csr.Resume(&e.Tf)
}

// trapVector stands in for original_source's exc_gen_entry symbol — a
// real trap-vector address this module never executes into, kept only
// so Trapframe_t.Stvec carries a nonzero, documented value.
const trapVector = 0xffffffff_80000000

// restitchKernelWindow re-copies the template's kernel/DRAM top-level
// entry into root — the copy env_create and env_run each perform
// separately from the PAGES/ENVS window, since they cover distinct
// top-level indices in this layout (see DESIGN.md Open Question 5).
func (t *Table) restitchKernelWindow(root mem.Pa_t) {
	idx := mem.TopIndexOf(defs.KernBase)
	t.arena.SetTopLevelEntry(root, idx, t.arena.TopLevelEntry(t.tmpl.Root, idx))
}

// restitchPagesEnvsWindow re-copies the template's PAGES/ENVS top-level
// entry(ies) into root, the redundant re-stitch env_run performs on
// every switch in addition to the one SetupVM already did at Create
// time — belt-and-braces against anything having cleared it.
func (t *Table) restitchPagesEnvsWindow(root mem.Pa_t) {
	pagesIdx := mem.TopIndexOf(defs.PAGES)
	envsIdx := mem.TopIndexOf(defs.ENVS)
	t.arena.SetTopLevelEntry(root, pagesIdx, t.arena.TopLevelEntry(t.tmpl.Root, pagesIdx))
	if envsIdx != pagesIdx {
		t.arena.SetTopLevelEntry(root, envsIdx, t.arena.TopLevelEntry(t.tmpl.Root, envsIdx))
	}
}

// preRun is pre_env_run: the judge instrumentation hook. It returns a
// non-nil frame only when MaxTicks is exceeded (the judge halts) or
// EndPC matches the previously running env's saved pc (that env is
// destroyed and a reschedule is left to the caller), mirroring the two
// #ifdef MOS_SCHED_MAX_TICKS / MOS_SCHED_END_PC blocks. Both are
// disabled (zero value) unless a caller opts in.
func (t *Table) preRun(e *Env) *csr.Trapframe_t {
	if t.MaxTicks != defs.SchedMaxTicksDisabled {
		t.ticks++
		if t.ticks > t.MaxTicks {
			return &e.Tf
		}
	}
	if t.EndPC != defs.SchedEndPCDisabled {
		if prev := t.Curenv(); prev != nil && prev.Tf.Sepc == t.EndPC {
			t.Destroy(prev)
			return &e.Tf
		}
	}
	return nil
}
