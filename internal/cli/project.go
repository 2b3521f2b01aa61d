package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/project"
)

// projectCommand groups the saved-project subcommands.
func (c *CLI) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Save and load named architectures",
		Long: `Save and load named architectures.

Projects live in the store configured under [store] (JSON files by default,
or SQLite or MongoDB).`,
	}
	cmd.AddCommand(c.projectSaveCommand())
	cmd.AddCommand(c.projectLoadCommand())
	cmd.AddCommand(c.projectListCommand())
	cmd.AddCommand(c.projectDeleteCommand())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(cmd *cobra.Command, fn func(project.Store) error) error {
	store, err := c.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *CLI) projectSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the network file as a project (overwrites a project of the same name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.loadNetwork()
			if err != nil {
				return err
			}
			return c.withStore(cmd, func(s project.Store) error {
				p := project.New(args[0], n.Arch)
				if prev, err := project.Resolve(cmd.Context(), s, args[0]); err == nil && prev.Name == args[0] {
					p.ID, p.CreatedAt = prev.ID, prev.CreatedAt
				}
				if err := s.Save(cmd.Context(), p); err != nil {
					return err
				}
				printSuccess("Saved project %s", StyleValue.Render(p.Name))
				printDetail("id %s", p.ID)
				return nil
			})
		},
	}
}

func (c *CLI) projectLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <id|name>",
		Short: "Replace the network file with a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(s project.Store) error {
				p, err := project.Resolve(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}
				n, err := c.loadNetwork()
				if err != nil {
					return err
				}
				if err := n.Arch.Replace(p.Architecture); err != nil {
					return err
				}
				n.Weights, n.Biases = nil, nil
				if err := c.saveNetwork(n); err != nil {
					return err
				}
				printSuccess("Loaded %s into %s", StyleValue.Render(p.Name), c.file)
				printDetail("%d layers, %d neurons", n.Arch.Len(), n.Arch.TotalNeurons())
				return nil
			})
		},
	}
}

func (c *CLI) projectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved projects, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(s project.Store) error {
				ps, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(ps) == 0 {
					printInfo("No saved projects")
					return nil
				}
				fmt.Fprintln(c.Out, projectTable(ps, time.Now()))
				return nil
			})
		},
	}
}

func (c *CLI) projectDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(s project.Store) error {
				p, err := project.Resolve(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}
				if err := s.Delete(cmd.Context(), p.ID); err != nil {
					return err
				}
				printSuccess("Deleted project %s", p.Name)
				return nil
			})
		},
	}
}

func projectTable(ps []*project.Project, now time.Time) string {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{
			p.Name,
			strconv.Itoa(p.Architecture.Len()),
			strconv.Itoa(p.Architecture.TotalNeurons()),
			formatRelativeTime(p.UpdatedAt, now),
			p.ID,
		})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "Layers", "Neurons", "Updated", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleValue
			case col >= 3:
				return StyleDim
			}
			return StyleNumber
		}).
		Render()
}

// formatRelativeTime renders t relative to now, e.g. "5m ago".
func formatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}
