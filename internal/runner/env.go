package runner

import (
	"sort"
	"strings"
)

// Environ is an environment snapshot in "KEY=VALUE" form. Builds copy the
// process environment once at startup and merge per-project overlays onto
// that copy, never mutating the parent process environment.
type Environ []string

// Merge returns a new snapshot with the overlay applied. Keys already
// present are replaced in place; new keys are appended. The receiver is
// not modified.
func (e Environ) Merge(overlay map[string]string) Environ {
	if len(overlay) == 0 {
		out := make(Environ, len(e))
		copy(out, e)
		return out
	}

	pending := make(map[string]string, len(overlay))
	for k, v := range overlay {
		pending[k] = v
	}

	out := make(Environ, 0, len(e)+len(overlay))
	for _, kv := range e {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		if v, hit := pending[key]; hit {
			out = append(out, key+"="+v)
			delete(pending, key)
			continue
		}
		out = append(out, kv)
	}
	// Keys absent from the base are appended in sorted order.
	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+pending[k])
	}
	return out
}

// Get returns the value of key in the snapshot, or an empty string.
func (e Environ) Get(key string) string {
	for i := len(e) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(e[i], "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}
