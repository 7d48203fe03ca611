package vm

import (
	"defs"
	"mem"
)

// SetupVM builds one process's page directory from the template: a
// fresh root page, the self-map entry, then the PAGES/ENVS window
// copied from the template's top level. Grounded on env_setup_vm:
// alloc_pgdir, the single map_page call installing the self-map, then
// the top-level copy of whichever entry(ies) cover PAGES/ENVS.
//
// original_source hard-codes that copy as a literal top-level index
// (PENVS, or 0x1fd/0x1fe under RISCV32) because its PAGES/ENVS/KernBase
// addresses are fixed relative to each other. This module derives the
// index(es) from defs.PAGES/defs.ENVS instead, so the copy stays
// correct regardless of how those addresses are laid out (see
// DESIGN.md). When both windows land in the same top-level entry, as
// they do by default, one copy covers both, exactly as PENVS does in
// the 3-level case.
//
// proc.Table.Create calls this instead of proc.Env importing vm
// directly, which would cycle back into proc for the Env type named in
// spec.md's component sketch; the two packages instead meet only
// through mem.Pa_t and mem.Arena.
func SetupVM(a *mem.Arena, tmpl *Template) (mem.Pa_t, error) {
	root, err := a.AllocPgdir()
	if err != nil {
		return 0, err
	}
	a.InstallSelfMap(root)

	pagesIdx := mem.TopIndexOf(defs.PAGES)
	envsIdx := mem.TopIndexOf(defs.ENVS)

	a.SetTopLevelEntry(root, pagesIdx, a.TopLevelEntry(tmpl.Root, pagesIdx))
	if envsIdx != pagesIdx {
		a.SetTopLevelEntry(root, envsIdx, a.TopLevelEntry(tmpl.Root, envsIdx))
	}
	return root, nil
}
