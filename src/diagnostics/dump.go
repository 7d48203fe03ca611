// Package diagnostics renders the formatted debug dumps
// original_source's debug_env/debug_sched/debug_elf produce, and a
// pprof-format dispatch profile for offline analysis in `go tool
// pprof`. Grounded on those three debug_* functions' column layout.
package diagnostics

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"proc"
)

// DumpEnvs writes one line per live process-table slot: id, parent id,
// status, dispatch count, and page-table root — the debug_env table.
// Numeric columns go through message.Printer so wide dispatch counts
// get thousands separators, the way debug_env's %d columns line up for
// a human reading kernel console output.
func DumpEnvs(w io.Writer, t *proc.Table) error {
	p := message.NewPrinter(language.English)
	if _, err := fmt.Fprintln(w, "id       parent   status     runs  pgdir"); err != nil {
		return err
	}
	for i := range t.Envs {
		e := &t.Envs[i]
		if e.Status == proc.StatusFree {
			continue
		}
		status := "NOT_RUNNABLE"
		if e.Status == proc.StatusRunnable {
			status = "RUNNABLE"
		}
		if _, err := p.Fprintf(w, "%08x %08x %-10s %v  %#x\n",
			e.Id, e.ParentId, status, number.Decimal(e.Runs), e.Pgdir); err != nil {
			return err
		}
	}
	return nil
}

// DumpSched writes the runnable queue head to tail — the debug_sched
// TAILQ_FOREACH walk.
func DumpSched(w io.Writer, t *proc.Table) error {
	if _, err := fmt.Fprintln(w, "runnable queue (head -> tail):"); err != nil {
		return err
	}
	var walkErr error
	t.Runnable().ForEach(func(slot int) {
		if walkErr != nil {
			return
		}
		e := &t.Envs[slot]
		_, walkErr = fmt.Fprintf(w, "  slot=%d id=%08x\n", slot, e.Id)
	})
	return walkErr
}

// DumpELF writes the program-header table of a loaded image the way
// debug_elf's column dump does (offset, vaddr, paddr, filesz, memsz,
// flags), taking the PT_LOAD segments elf.Segments reports.
func DumpELF(w io.Writer, segments []ELFSegment) error {
	p := message.NewPrinter(language.English)
	if _, err := fmt.Fprintln(w, "offset    vaddr     paddr     filesz    memsz     flags"); err != nil {
		return err
	}
	for _, s := range segments {
		if _, err := p.Fprintf(w, "%08x  %08x  %08x  %v  %v  %s\n",
			s.Offset, s.Vaddr, s.Paddr, number.Decimal(s.Filesz), number.Decimal(s.Memsz), s.Flags); err != nil {
			return err
		}
	}
	return nil
}

// ELFSegment is the subset of an ELF program header DumpELF prints;
// the caller converts elf.Segments' result into these so diagnostics
// never needs its own ELF dependency.
type ELFSegment struct {
	Offset, Vaddr, Paddr, Filesz, Memsz uint64
	Flags                                string
}
