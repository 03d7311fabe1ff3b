package wheel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Superseded CLAP wheel handling: the CLAP project builds laion_clap 1.1.5;
// a stale 1.1.4 wheel showing up from another project's dist tree is skipped
// when the preferred version has already been collected.
const (
	legacyClapPrefix    = "laion_clap-1.1.4"
	preferredClapPrefix = "laion_clap-1.1.5"
)

// CopyWheels copies every wheel from a project's dist directory into the
// shared wheels directory, returning how many files were copied and their
// names. A missing source directory is not an error; it just contributes
// nothing.
//
// The duplicate check against the target directory is not transactional, so
// two concurrent runs could both admit a legacy wheel. The tools are
// sequential single-process, which avoids this in practice.
func CopyWheels(sourceDir, targetDir string) (int, []string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("source directory does not exist", "path", sourceDir)
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("unable to read dist directory: %w", err)
	}

	count := 0
	copied := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".whl") {
			continue
		}

		if strings.Contains(name, legacyClapPrefix) && hasPreferredClap(targetDir) {
			log.Info("skipping superseded wheel", "file", name, "preferred", preferredClapPrefix)
			continue
		}

		src := filepath.Join(sourceDir, name)
		dst := filepath.Join(targetDir, name)
		size, err := copyFile(src, dst)
		if err != nil {
			return count, copied, fmt.Errorf("unable to copy %s: %w", name, err)
		}

		log.Info("collected wheel", "file", name, "size", humanize.Bytes(uint64(size)))
		copied = append(copied, name)
		count++
	}

	return count, copied, nil
}

// hasPreferredClap reports whether the target directory already holds a
// wheel for the preferred CLAP version.
func hasPreferredClap(targetDir string) bool {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), preferredClapPrefix) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}
