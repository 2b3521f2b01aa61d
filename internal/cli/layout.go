package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/layout"
)

// layoutCommand prints resolved neuron positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output        string
		asJSON        bool
		layerSpacing  float64
		neuronSpacing float64
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the 3D position of every neuron",
		Long: `Print the 3D position of every neuron.

Layers sit along the x axis, layer spacing apart; neurons of a layer are
spread along y, neuron spacing apart and centred on zero. With --json (or
-o) the full layout including edges is written as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.loadNetwork()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), true)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			opts := c.renderOptions(n)
			if cmd.Flags().Changed("layer-spacing") {
				opts.LayerSpacing = layerSpacing
			}
			if cmd.Flags().Changed("neuron-spacing") {
				opts.NeuronSpacing = neuronSpacing
			}
			l, err := runner.Layout(cmd.Context(), n.Arch, opts)
			if err != nil {
				return err
			}

			if output != "" || asJSON {
				data, err := prettyJSON(l)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = fmt.Fprintln(c.Out, data)
					return err
				}
				if err := os.WriteFile(output, []byte(data+"\n"), 0o644); err != nil {
					return fmt.Errorf("write output %s: %w", output, err)
				}
				printSuccess("Layout written")
				printFile(output)
				return nil
			}
			fmt.Fprintln(c.Out, positionsTable(&l))
			fmt.Fprintln(c.Out, StyleDim.Render(fmt.Sprintf("%d neurons · %d edges · center (%.2f, %.2f, %.2f)",
				l.NeuronCount(), len(l.Edges), l.Center.X(), l.Center.Y(), l.Center.Z())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the layout JSON to a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")
	cmd.Flags().Float64Var(&layerSpacing, "layer-spacing", layout.DefaultLayerSpacing, "distance between layers (overrides config)")
	cmd.Flags().Float64Var(&neuronSpacing, "neuron-spacing", layout.DefaultNeuronSpacing, "distance between neurons (overrides config)")

	return cmd
}

func positionsTable(l *layout.Layout) string {
	var rows [][]string
	for li, layer := range l.Layers {
		for ni, p := range layer {
			rows = append(rows, []string{
				strconv.Itoa(li),
				strconv.Itoa(ni),
				strconv.FormatFloat(p.X(), 'f', 2, 64),
				strconv.FormatFloat(p.Y(), 'f', 2, 64),
				strconv.FormatFloat(p.Z(), 'f', 2, 64),
			})
		}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Layer", "Neuron", "x", "y", "z").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col >= 2 {
				return StyleNumber.PaddingLeft(1)
			}
			return lipgloss.NewStyle().PaddingLeft(1)
		}).
		Render()
}
