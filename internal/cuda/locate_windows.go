//go:build windows

package cuda

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows/registry"

	"github.com/d8ahazard/audiolab-tools/internal/utils"
)

const toolkitRegistryKey = `SOFTWARE\NVIDIA Corporation\GPU Computing Toolkit\CUDA`

var toolkitRootDirs = []string{
	`C:\Program Files\NVIDIA GPU Computing Toolkit\CUDA`,
	`C:\NVIDIA\CUDA`,
}

// locateToolkit resolves the newest installed toolkit, preferring the
// registry and falling back to scanning the usual install trees.
func locateToolkit() string {
	if home := toolkitFromRegistry(); home != "" {
		return home
	}
	for _, root := range toolkitRootDirs {
		if home := newestVersionDir(root); home != "" {
			return home
		}
	}
	return ""
}

func toolkitFromRegistry() string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, toolkitRegistryKey, registry.READ)
	if err != nil {
		log.Debug("could not read CUDA registry key", "err", err)
		return ""
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return ""
	}

	best := ""
	bestVersion := 0
	for _, name := range names {
		v := parseVersionKey(name)
		if v > bestVersion {
			bestVersion = v
			best = name
		}
	}
	if best == "" {
		return ""
	}

	versionKey, err := registry.OpenKey(key, best, registry.READ)
	if err != nil {
		return ""
	}
	defer versionKey.Close()

	installDir, _, err := versionKey.GetStringValue("InstallPath")
	if err != nil {
		return ""
	}
	return installDir
}

// parseVersionKey turns a registry subkey like "v12.1" into a comparable
// integer (major*100+minor). Returns 0 for anything unparseable.
func parseVersionKey(name string) int {
	if !strings.HasPrefix(name, "v") {
		return 0
	}
	parts := strings.Split(name[1:], ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major*100 + minor
}

// newestVersionDir returns the lexically-highest vX.Y directory under root.
func newestVersionDir(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	versions := []string{}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "v") {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	path := filepath.Join(root, versions[0])
	if utils.DirExists(path) {
		return path
	}
	return ""
}
