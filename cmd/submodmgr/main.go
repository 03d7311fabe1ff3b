// Package main provides the entry point for the submodmgr CLI, which keeps
// the vendored audio subprojects registered and initialized as git
// submodules.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d8ahazard/audiolab-tools/internal/cli"
	"github.com/d8ahazard/audiolab-tools/internal/runner"
	"github.com/d8ahazard/audiolab-tools/internal/submodule"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	addMissing bool
	update     bool
	check      bool
	setup      bool

	rootCmd = &cobra.Command{
		Use:          "submodmgr",
		Short:        "Manage git submodules for the audio subprojects",
		Long:         "\nReconcile the vendored audio subproject directories into registered, initialized git submodules.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

func execute(*cobra.Command, []string) error {
	ctx := context.Background()
	mgr := submodule.NewManager(runner.New(), cli.RepoRoot())

	switch {
	case addMissing:
		mgr.AddMissing(ctx)
	case update:
		mgr.UpdateAll(ctx)
	case check:
		mgr.CheckAndPull(ctx)
	case setup:
		mgr.Setup(ctx)
	default:
		mgr.CheckAndPull(ctx)
	}
	return nil
}

func main() {
	closer, err := cli.SetupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.Flags().BoolVar(&addMissing, "add-missing", false, "add missing submodules")
	rootCmd.Flags().BoolVar(&update, "update", false, "update all submodules to latest commit")
	rootCmd.Flags().BoolVar(&check, "check", false, "check if submodules are initialized and pull if necessary")
	rootCmd.Flags().BoolVar(&setup, "setup", false, "setup all submodules (add, init, update)")
	rootCmd.MarkFlagsMutuallyExclusive("add-missing", "update", "check", "setup")
}
