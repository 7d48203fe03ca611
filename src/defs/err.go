package defs

import "fmt"

// Kind enumerates the error kinds this subsystem's operations return.
// Kept as a small closed enum threaded as an explicit return value,
// the way the teacher's own defs.Err_t is threaded through vm/as.go
// (-defs.EFAULT, -defs.ENOMEM) rather than wrapped with fmt.Errorf at
// every layer.
type Kind int

const (
	// NoKind means no error occurred.
	NoKind Kind = iota
	// NoFreeSlot: env_alloc found the free list empty.
	NoFreeSlot
	// NoFreeAsid: the ASID bitmap is full.
	NoFreeAsid
	// BadEnv: envid2env resolved to a FREE slot, a mismatched id, or
	// failed the permission check.
	BadEnv
	// VMError: the page allocator or page-table walker could not
	// allocate.
	VMError
)

func (k Kind) String() string {
	switch k {
	case NoKind:
		return "ok"
	case NoFreeSlot:
		return "no free process slot"
	case NoFreeAsid:
		return "no free asid"
	case BadEnv:
		return "bad env"
	case VMError:
		return "vm allocation failed"
	default:
		return fmt.Sprintf("defs.Kind(%d)", int(k))
	}
}

// Err_t wraps a Kind as a Go error. A nil *Err_t (or one with Kind ==
// NoKind) means success; callers compare with errors.As or KindOf.
type Err_t struct {
	K Kind
}

func (e *Err_t) Error() string {
	if e == nil {
		return "ok"
	}
	return e.K.String()
}

// KindOf reports the error kind, or NoKind if err is nil or not an
// *Err_t.
func KindOf(err error) Kind {
	if err == nil {
		return NoKind
	}
	if e, ok := err.(*Err_t); ok {
		return e.K
	}
	return NoKind
}

// New returns an *Err_t for the given kind, or nil for NoKind.
func New(k Kind) error {
	if k == NoKind {
		return nil
	}
	return &Err_t{K: k}
}
