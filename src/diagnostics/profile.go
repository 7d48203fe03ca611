package diagnostics

import (
	"io"

	"github.com/google/pprof/profile"

	"proc"
)

// RunProfile builds a pprof-format profile recording each live env's
// dispatch count (Env.Runs) as a sample, keyed by its env id, and
// writes the gzipped encoding to w. Intended for `go tool pprof` to
// render a flat view of which processes this kernel dispatched most.
func RunProfile(w io.Writer, t *proc.Table) error {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "dispatches", Unit: "count"},
		},
		TimeNanos: 0,
	}

	fn := &profile.Function{ID: 1, Name: "env_run"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}
	prof.Function = []*profile.Function{fn}
	prof.Location = []*profile.Location{loc}

	for i := range t.Envs {
		e := &t.Envs[i]
		if e.Status == proc.StatusFree {
			continue
		}
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(e.Runs)},
			Label:    map[string][]string{"env_id": {idHex(e.Id)}},
		})
	}

	return prof.Write(w)
}

func idHex(id uint32) string {
	const hexdigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexdigits[id&0xf]
		id >>= 4
	}
	return string(b)
}
