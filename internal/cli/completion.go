package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for layerviz.

Layer indices complete from the network file, so "layerviz set <TAB>" lists
the layers of ./network.json (or the file given with --file).

  bash:        source <(layerviz completion bash)
  zsh:         layerviz completion zsh > "${fpath[1]}/_layerviz"
  fish:        layerviz completion fish | source
  powershell:  layerviz completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			default:
				return root.GenPowerShellCompletionWithDesc(w)
			}
		},
	}
	return cmd
}

// withLayerCompletion completes the leading index arguments of cmd.
func (c *CLI) withLayerCompletion(cmd *cobra.Command, positions int) *cobra.Command {
	cmd.ValidArgsFunction = c.completeLayerIndex(positions)
	return cmd
}

// completeLayerIndex completes the first positions arguments with the
// layer indices of the network file, each described by its label and size.
func (c *CLI) completeLayerIndex(positions int) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) >= positions {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		n, err := c.loadNetwork()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		out := make([]cobra.Completion, 0, n.Arch.Len())
		for i, l := range n.Arch.Layers {
			out = append(out, cobra.CompletionWithDesc(fmt.Sprint(i), fmt.Sprintf("%s, %d neurons", l.Label(i), l.Neurons)))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
