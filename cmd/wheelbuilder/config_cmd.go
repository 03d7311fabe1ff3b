package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/d8ahazard/audiolab-tools/internal/cli"
)

const defaultConfig = `# build wheels without isolation (use when in a dedicated venv)
no-isolation: true

# CUDA toolkit root; leave empty to auto-detect
cuda-home: ""

# directory for collected wheels, relative to the repository root
wheels-dir: "wheels"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the wheelbuilder config file",
	Long:    "\nEdit the wheelbuilder config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "wheelbuilder config\nwheelbuilder config --config path/to/audiolab.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if configFile == "" {
			configFile = defaultConfigPath
		}
		if err := cli.EnsureConfigFile(configFile, defaultConfig); err != nil {
			return err
		}

		c, err := editor.Cmd("audiolab", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}
