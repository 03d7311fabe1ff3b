// Package main provides the entry point for the wheelbuilder CLI, which
// builds distributable wheels for the vendored audio subprojects and
// collects them in a shared wheels directory.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/indent"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/d8ahazard/audiolab-tools/internal/cli"
	"github.com/d8ahazard/audiolab-tools/internal/cuda"
	"github.com/d8ahazard/audiolab-tools/internal/project"
	"github.com/d8ahazard/audiolab-tools/internal/runner"
	"github.com/d8ahazard/audiolab-tools/internal/submodule"
	"github.com/d8ahazard/audiolab-tools/internal/utils"
	"github.com/d8ahazard/audiolab-tools/internal/wheel"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile        string
	defaultConfigPath string
	noIsolation       bool
	packageName       string
	cudaHome          string

	rootCmd = &cobra.Command{
		Use:          "wheelbuilder",
		Short:        "Build wheels for the audio subprojects",
		Long:         "\nBuild binary wheels for every vendored audio subproject and collect them in one wheels directory.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

func execute(*cobra.Command, []string) error {
	noIsolation = viper.GetBool("no-isolation")
	if cudaHome == "" {
		cudaHome = viper.GetString("cuda-home")
	}

	repoRoot := cli.RepoRoot()

	projects := project.All
	if packageName != "" {
		proj, err := project.Lookup(packageName)
		if err != nil {
			msg := fmt.Sprintf("package %s not found. Available packages: %s",
				packageName, strings.Join(project.Names(), ", "))
			if suggestion := project.Suggest(packageName); suggestion != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", suggestion)
			}
			return fmt.Errorf("%s", msg)
		}
		projects = []project.Project{proj}
		fmt.Println(cli.Header("Building only " + proj.Name))
	}

	wheelsDir := filepath.Join(repoRoot, viper.GetString("wheels-dir"))
	if err := os.MkdirAll(wheelsDir, 0o755); err != nil {
		return fmt.Errorf("unable to create wheels directory: %w", err)
	}

	ctx := context.Background()
	run := runner.New()

	// One environment snapshot for the whole run; per-project overlays are
	// merged onto copies of it, never onto the process environment.
	baseEnv := runner.Environ(os.Environ())

	info := cuda.NewDetector(run, nil).Detect(ctx, cudaHome)
	if info.Home != "" {
		fmt.Println(cli.Header("Setting CUDA_HOME to " + info.Home))
		baseEnv = baseEnv.Merge(map[string]string{"CUDA_HOME": info.Home})
	}

	if info.Available {
		fmt.Println(cli.Header("CUDA detected! CUDA support will be enabled where applicable"))
		wheel.EnsureTorchCUDA(ctx, run, baseEnv)
	} else {
		fmt.Println(cli.Header("CUDA not detected. Building CPU-only versions"))
	}

	submodule.NewManager(run, repoRoot).Refresh(ctx)

	wheel.InstallBuildDeps(ctx, run, baseEnv, runtime.GOOS)
	if runtime.GOOS == "windows" {
		fmt.Println(cli.Header("Windows detected. Will use triton-windows for mamba"))
	}

	var archList []string
	if info.Available && runtime.GOOS != "darwin" {
		archList = cuda.DetectArchList(ctx, run)
	}

	if noIsolation {
		fmt.Println(cli.Header("Building wheels without isolation (using current environment)"))
	}

	builder := &wheel.Builder{
		Run:       run,
		BaseDir:   repoRoot,
		BaseEnv:   baseEnv,
		CUDA:      info,
		Isolation: !noIsolation,
		ArchList:  archList,
	}

	totalWheels := 0
	copiedWheels := []string{}
	for _, proj := range projects {
		if !utils.DirExists(filepath.Join(repoRoot, proj.Name)) {
			log.Warn("project directory doesn't exist, skipping", "project", proj.Name)
			continue
		}

		fmt.Println()
		fmt.Println(cli.Rule())
		fmt.Println(cli.Header("Building wheel for " + proj.Name))
		fmt.Println(cli.Rule())

		distDir, err := builder.Build(ctx, proj)
		if err != nil {
			log.Error("failed to build wheel", "project", proj.Name, "err", err)
			continue
		}

		count, files, err := wheel.CopyWheels(distDir, wheelsDir)
		if err != nil {
			log.Error("failed to collect wheels", "project", proj.Name, "err", err)
		}
		totalWheels += count
		copiedWheels = append(copiedWheels, files...)
		log.Info("successfully built wheels", "project", proj.Name, "count", count)
	}

	printSummary(wheelsDir, totalWheels, copiedWheels, info)
	return nil
}

// printSummary prints the end-of-run report. It always runs, even when no
// project built successfully.
func printSummary(wheelsDir string, totalWheels int, copiedWheels []string, info cuda.Info) {
	fmt.Println()
	fmt.Println(cli.Rule())
	fmt.Printf("Build complete! %s wheel(s) collected in %s\n",
		cli.Keyword(fmt.Sprintf("%d", totalWheels)), wheelsDir)
	fmt.Println(cli.Rule())

	if len(copiedWheels) > 0 {
		fmt.Println("\nBuilt wheels:")
		sort.Strings(copiedWheels)
		fmt.Print(indent.String(strings.Join(copiedWheels, "\n")+"\n", 2))
	}

	if info.Available {
		fmt.Println("\nNOTE: fairseq, causal-conv1d, and mamba were built with CUDA support.")
	} else {
		fmt.Println("\nNOTE: fairseq, causal-conv1d, and mamba were built without CUDA support (CPU-only).")
	}

	if runtime.GOOS == "windows" {
		fmt.Println("\nNOTE: mamba was built with triton-windows for Windows compatibility.")
	} else {
		fmt.Println("\nNOTE: mamba was built with the standard triton library.")
	}
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
	defaultConfigPath = cli.LoadConfig()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVar(&noIsolation, "no-isolation", true, "build wheels without isolation (use when in a dedicated venv)")
	rootCmd.Flags().StringVar(&packageName, "package", "", "build only a specific package (use project directory name)")
	rootCmd.Flags().StringVar(&cudaHome, "cuda-home", "", "set CUDA_HOME manually (useful for CI/CD)")

	_ = viper.BindPFlag("no-isolation", rootCmd.Flags().Lookup("no-isolation"))
	_ = viper.BindPFlag("cuda-home", rootCmd.Flags().Lookup("cuda-home"))

	viper.SetDefault("no-isolation", true)
	viper.SetDefault("cuda-home", "")
	viper.SetDefault("wheels-dir", "wheels")

	rootCmd.AddCommand(configCmd, manCmd)
}
