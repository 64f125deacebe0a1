package memtable

import "fmt"

// assertf panics if cond is false. Every caller of this represents a
// contract violation: capacity exceeded, a state transition attempted from
// the wrong state, a misshapen scratch slice, or a zero-valued sizing
// parameter. These indicate a bug in the host, not a runtime condition to
// recover from, so they fail fast instead of returning an error.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("memtable: "+format, args...))
	}
}
