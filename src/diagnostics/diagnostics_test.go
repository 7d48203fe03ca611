package diagnostics

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"csr"
	"defs"
	"mem"
	"proc"
	"vm"
)

func newTable(t *testing.T) *proc.Table {
	t.Helper()
	a, err := mem.NewArena(0x1000_0000, 4096*defs.PageSize)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	pagesPA, _ := a.Alloc()
	envsPA, _ := a.Alloc()
	tmpl, err := vm.BuildTemplate(a, pagesPA, envsPA, defs.PageSize, defs.PageSize)
	if err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}
	return proc.Init(a, tmpl, csr.NewMachine())
}

func TestDumpEnvsListsLiveSlotsOnly(t *testing.T) {
	tbl := newTable(t)
	e, err := tbl.Create(0, func(a *mem.Arena, root mem.Pa_t) (uintptr, error) { return 0x1000, nil })
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var buf bytes.Buffer
	if err := DumpEnvs(&buf, tbl); err != nil {
		t.Fatalf("DumpEnvs: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "RUNNABLE") {
		t.Fatalf("expected RUNNABLE row, got:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Fatalf("expected header plus one row for the single live env, got %d lines:\n%s", lines, out)
	}
	_ = e
}

func TestDumpSchedWalksQueue(t *testing.T) {
	tbl := newTable(t)
	e, err := tbl.Create(0, func(a *mem.Arena, root mem.Pa_t) (uintptr, error) { return 0x1000, nil })
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var buf bytes.Buffer
	if err := DumpSched(&buf, tbl); err != nil {
		t.Fatalf("DumpSched: %v", err)
	}
	wantId := fmt.Sprintf("%08x", e.Id)
	if !strings.Contains(buf.String(), wantId) {
		t.Fatalf("expected id %s in sched dump, got:\n%s", wantId, buf.String())
	}
}
