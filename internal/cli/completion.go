package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionGenerators maps shell names to their cobra generators.
var completionGenerators = map[string]func(root *cobra.Command) error{
	"bash": func(root *cobra.Command) error { return root.GenBashCompletion(os.Stdout) },
	"zsh":  func(root *cobra.Command) error { return root.GenZshCompletion(os.Stdout) },
	"fish": func(root *cobra.Command) error { return root.GenFishCompletion(os.Stdout, true) },
	"powershell": func(root *cobra.Command) error {
		return root.GenPowerShellCompletionWithDesc(os.Stdout)
	},
}

// completionCommand creates the completion command for generating shell
// completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for starmark and print it to stdout.

Load it directly, for example:

  source <(starmark completion bash)
  starmark completion fish | source

or install it where your shell picks completions up, for example:

  starmark completion zsh > "${fpath[1]}/_starmark"`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root())
		},
	}
}
