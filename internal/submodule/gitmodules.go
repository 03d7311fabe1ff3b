package submodule

import "strings"

// containsPathEntry reports whether a .gitmodules body records the given
// submodule path. Matches the "path = <name>" lines git writes; whitespace
// around the key and value is tolerated.
func containsPathEntry(content, name string) bool {
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "path" && strings.TrimSpace(value) == name {
			return true
		}
	}
	return false
}
