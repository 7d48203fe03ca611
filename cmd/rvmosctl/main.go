// Command rvmosctl is the boot harness: it builds the physical arena,
// the template page directory, the CSR file, and a process table, then
// creates and runs a handful of demo envs the way the real kernel's
// assembly+runtime entry point would hand control to env_init/
// env_create/env_run. biscuit's own entry point is unported assembly,
// so this is the idiomatic small-main substitute the rest of the
// retrieved pack uses for its command-line front ends (e.g.
// gravwell's cmd/ binaries).
package main

import (
	"flag"
	"fmt"
	"os"

	"csr"
	"defs"
	"diagnostics"
	"elf"
	"klog"
	"mem"
	"proc"
	"vm"

	"github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	ticks := flag.Int("ticks", 3, "number of simulated dispatch rounds to run")
	profOut := flag.String("profile", "", "write a pprof dispatch profile to this path")
	flag.Parse()

	if *verbose {
		klog.SetLevel(logrus.DebugLevel)
	}

	if err := run(*ticks, *profOut); err != nil {
		fmt.Fprintln(os.Stderr, "rvmosctl:", err)
		os.Exit(1)
	}
}

func run(ticks int, profOut string) error {
	arena, err := mem.NewArena(0x8000_0000, defs.MemorySize)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	defer arena.Close()

	pagesPA, err := arena.Alloc()
	if err != nil {
		return fmt.Errorf("pages window: %w", err)
	}
	envsPA, err := arena.Alloc()
	if err != nil {
		return fmt.Errorf("envs window: %w", err)
	}

	// The PAGES/ENVS windows are single-page introspection views in
	// this harness (the actual backing arrays live in Go memory, not
	// the simulated physical arena); only their first page is mapped,
	// matching BuildTemplate's other callers.
	tmpl, err := vm.BuildTemplate(arena, pagesPA, envsPA, defs.PageSize, defs.PageSize)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}

	mach := csr.NewMachine()
	table := proc.Init(arena, tmpl, mach)

	images := [][]byte{demoImage(0x1000), demoImage(0x2000)}
	for _, img := range images {
		loader := func(a *mem.Arena, root mem.Pa_t) (uintptr, error) {
			return elf.Load(a, root, img)
		}
		if _, err := table.Create(0, loader); err != nil {
			return fmt.Errorf("create: %w", err)
		}

		segs, err := elf.Segments(img)
		if err != nil {
			return fmt.Errorf("segments: %w", err)
		}
		if err := diagnostics.DumpELF(os.Stdout, toELFSegments(segs)); err != nil {
			return fmt.Errorf("dump elf: %w", err)
		}
	}

	for i := 0; i < ticks; i++ {
		q := table.Runnable()
		slot, ok := q.First()
		if !ok {
			klog.Infof("runnable queue empty, stopping after %d ticks", i)
			break
		}
		e := &table.Envs[slot]
		klog.Env(e.Id, uint32(e.Asid)).Infof("dispatching")
		table.Run(e)
		q.Remove(slot)
		q.InsertHead(slot)
	}

	if err := diagnostics.DumpEnvs(os.Stdout, table); err != nil {
		return fmt.Errorf("dump envs: %w", err)
	}
	if err := diagnostics.DumpSched(os.Stdout, table); err != nil {
		return fmt.Errorf("dump sched: %w", err)
	}

	if profOut != "" {
		f, err := os.Create(profOut)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		defer f.Close()
		if err := diagnostics.RunProfile(f, table); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}

	return nil
}

// toELFSegments adapts elf.Segment (elf's own parse result) to
// diagnostics.ELFSegment, keeping diagnostics free of an elf import.
func toELFSegments(segs []elf.Segment) []diagnostics.ELFSegment {
	out := make([]diagnostics.ELFSegment, len(segs))
	for i, s := range segs {
		out[i] = diagnostics.ELFSegment{
			Offset: s.Offset,
			Vaddr:  s.Vaddr,
			Paddr:  s.Paddr,
			Filesz: s.Filesz,
			Memsz:  s.Memsz,
			Flags:  s.Flags,
		}
	}
	return out
}

// demoImage hand-assembles a minimal valid 64-bit little-endian ELF
// executable with a single PT_LOAD segment whose entry point is entry,
// standing in for a real userland binary (no toolchain is available in
// this environment to produce one).
func demoImage(entry uint64) []byte {
	const (
		ehsize = 64
		phsize = 56
	)
	buf := make([]byte, ehsize+phsize+16)

	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	le16(buf[16:], 2)             // e_type = ET_EXEC
	le16(buf[18:], 0xf3)          // e_machine = EM_RISCV
	le32(buf[20:], 1)             // e_version
	le64(buf[24:], entry)         // e_entry
	le64(buf[32:], ehsize)        // e_phoff
	le64(buf[40:], 0)             // e_shoff
	le16(buf[52:], ehsize)        // e_ehsize
	le16(buf[54:], phsize)        // e_phentsize
	le16(buf[56:], 1)             // e_phnum

	ph := buf[ehsize:]
	le32(ph[0:], 1)                 // p_type = PT_LOAD
	le32(ph[4:], 5)                 // p_flags = R|X
	le64(ph[8:], ehsize+phsize)     // p_offset
	le64(ph[16:], entry)            // p_vaddr
	le64(ph[24:], entry)            // p_paddr
	le64(ph[32:], 16)               // p_filesz
	le64(ph[40:], 16)               // p_memsz
	le64(ph[48:], defs.PageSize)    // p_align

	text := buf[ehsize+phsize:]
	for i := range text {
		text[i] = byte(i + 1)
	}

	return buf
}

func le16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func le32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
func le64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
