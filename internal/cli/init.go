package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/config"
)

var (
	initForce bool
	initPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Init writes a commented sample configuration. The default location is
$XDG_CONFIG_HOME/hardenscope/hardenscope.yaml, or ~/hardenscope.yaml
when XDG_CONFIG_HOME is unset.
A hardenscope.yaml in the working directory takes precedence when present.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false,
		"overwrite an existing file")
	initCmd.Flags().StringVar(&initPath, "path", "",
		"write to this path instead of the default location")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.ConfigPath()
	}
	if err := config.WriteSampleConfig(path, initForce); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	fmt.Printf("Wrote sample config to %s\n", path)
	return nil
}
