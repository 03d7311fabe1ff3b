// Package cli carries the bits shared by the wheelbuilder and submodmgr
// binaries: logging setup, config file discovery, styled console output and
// repository root resolution.
package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"})
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "248"})
)

const ruleWidth = 40

// Keyword highlights an inline term.
func Keyword(s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return keywordStyle.Render(s)
}

// Header renders the banner printed between build phases, in the style of
// the classic "===== phase =====" separators.
func Header(s string) string {
	banner := "===== " + s + " ====="
	if !stdoutIsTerminal() {
		return banner
	}
	return headerStyle.Render(banner)
}

// Rule renders a horizontal separator line.
func Rule() string {
	line := strings.Repeat("=", ruleWidth)
	if !stdoutIsTerminal() {
		return line
	}
	return ruleStyle.Render(line)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
