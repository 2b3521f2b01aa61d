package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
	netio "github.com/matzehuels/layerviz/pkg/io"
)

// =============================================================================
// new / show
// =============================================================================

func (c *CLI) newCommand() *cobra.Command {
	var (
		title    string
		extended bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "new [neurons...]",
		Short: "Create a network file (default layers 3 5 2)",
		Example: `  layerviz new
  layerviz new 4 8 8 2 --title "Classifier"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts := arch.DefaultCounts
			if len(args) > 0 {
				var err error
				if counts, err = parseCounts(args); err != nil {
					return err
				}
			}
			a := arch.New(counts...)
			a.SetMaxNeurons(c.Config.Limits.MaxNeurons)
			if err := a.SetTitle(title); err != nil {
				return err
			}
			if err := a.Validate(); err != nil {
				return err
			}
			if _, err := os.Stat(c.file); err == nil && !force {
				return errors.New(errors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", c.file)
			}

			variant := netio.Simple
			if extended {
				variant = netio.Extended
			}
			if err := netio.ExportJSON(&netio.Network{Arch: a}, variant, c.file); err != nil {
				return err
			}
			printSuccess("Created %s", c.file)
			printDetail("%d layers, %d neurons", a.Len(), a.TotalNeurons())
			printNextStep("Render it", "layerviz render -f "+c.file)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "architecture title")
	cmd.Flags().BoolVar(&extended, "extended", false, "write the extended descriptor format")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the layers of the network file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.loadNetwork()
			if err != nil {
				return err
			}
			if asJSON {
				data, err := netio.Marshal(n, netio.Extended)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.Out, string(data))
				return err
			}
			if n.Arch.Title != "" {
				fmt.Fprintln(c.Out, StyleTitle.Render(n.Arch.Title))
			}
			fmt.Fprintln(c.Out, architectureTable(n.Arch, -1))
			fmt.Fprintln(c.Out, capacityLine(n.Arch))
			if n.Weights != nil {
				fmt.Fprintln(c.Out, StyleDim.Render("supplied weights loaded"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the extended JSON form")
	return cmd
}

// =============================================================================
// add / remove / move
// =============================================================================

func (c *CLI) addCommand() *cobra.Command {
	var lf layerFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a layer (one neuron unless --neurons is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.mutate("add", func(a *arch.Architecture) error {
				if !lf.changed(cmd) {
					return a.Add()
				}
				l := arch.NewLayer(1)
				if err := lf.apply(cmd, &l); err != nil {
					return err
				}
				return a.AddLayer(l)
			})
			if err != nil {
				return err
			}
			i := n.Arch.Len() - 1
			printSuccess("Added %s with %d neurons", n.Arch.Layers[i].Label(i), n.Arch.Layers[i].Neurons)
			printDetail("%d/%d neurons used", n.Arch.TotalNeurons(), n.Arch.MaxNeurons())
			return nil
		},
	}
	lf.bind(cmd, true)
	return cmd
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a layer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			var label string
			if _, err := c.mutate("remove", func(a *arch.Architecture) error {
				if l, err := a.Layer(i); err == nil {
					label = l.Label(i)
				}
				return a.Remove(i)
			}); err != nil {
				return err
			}
			printSuccess("Removed %s", label)
			return nil
		},
	}
}

func (c *CLI) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a layer to another position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			if _, err := c.mutate("move", func(a *arch.Architecture) error { return a.Move(from, to) }); err != nil {
				return err
			}
			printSuccess("Moved layer %d to %d", from, to)
			return nil
		},
	}
}

// =============================================================================
// set / rename / edit
// =============================================================================

func (c *CLI) setCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "set <index> <neurons>",
		Short: "Change the neuron count of a layer",
		Long: `Change the neuron count of a layer.

A count below one is rejected unless you confirm removing the layer
instead, either at the prompt or with --yes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New(errors.ErrCodeInvalidInput, "neuron count must be an integer, got %q", args[1])
			}

			var removed bool
			if _, err := c.mutate("set", func(a *arch.Architecture) error {
				removed, err = a.SetNeuronsOrRemove(i, count, func(i int) bool {
					return yes || c.confirm(fmt.Sprintf("A layer needs at least one neuron. Remove layer %d instead?", i))
				})
				return err
			}); err != nil {
				return err
			}
			if removed {
				printSuccess("Removed layer %d", i)
			} else {
				printSuccess("Layer %d now has %d neurons", i, count)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "remove the layer without asking when the count is below one")
	return cmd
}

func (c *CLI) renameCommand() *cobra.Command {
	var title bool
	cmd := &cobra.Command{
		Use:   "rename <index> <name> | --title <title>",
		Short: "Name a layer, or set the architecture title",
		Args: func(cmd *cobra.Command, args []string) error {
			if title {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if title {
				if _, err := c.mutate("title", func(a *arch.Architecture) error { return a.SetTitle(args[0]) }); err != nil {
					return err
				}
				printSuccess("Title set to %q", args[0])
				return nil
			}
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if _, err := c.mutate("rename", func(a *arch.Architecture) error { return a.Rename(i, args[1]) }); err != nil {
				return err
			}
			printSuccess("Layer %d renamed to %q", i, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&title, "title", false, "set the architecture title instead")
	return cmd
}

func (c *CLI) editCommand() *cobra.Command {
	var lf layerFlags
	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Set hyperparameters of a layer",
		Example: `  layerviz edit 1 --activation relu --regularization l2:0.01
  layerviz edit 2 --kernel 3 --strides 1 --skip input,output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if !lf.changed(cmd) {
				return errors.New(errors.ErrCodeInvalidInput, "nothing to change (see --help for layer flags)")
			}
			n, err := c.mutate("edit", func(a *arch.Architecture) error {
				var applyErr error
				if err := a.Update(i, func(l *arch.Layer) { applyErr = lf.apply(cmd, l) }); err != nil {
					return err
				}
				return applyErr
			})
			if err != nil {
				return err
			}
			l := &n.Arch.Layers[i]
			printSuccess("Updated %s", l.Label(i))
			if s := hyperparameterSummary(l); s != "" {
				printDetail("%s", s)
			}
			return nil
		},
	}
	lf.bind(cmd, true)
	return cmd
}

// =============================================================================
// Layer Flags
// =============================================================================

// layerFlags binds the layer descriptor fields to command flags. Only
// flags the user set are applied.
type layerFlags struct {
	neurons        int
	name           string
	filter         int
	kernel         int
	padding        int
	strides        int
	activation     string
	regularization string
	bias           string
	skip           []string
}

var layerFlagNames = []string{"neurons", "name", "filter", "kernel", "padding", "strides", "activation", "regularization", "bias", "skip"}

func (f *layerFlags) bind(cmd *cobra.Command, withNeurons bool) {
	fs := cmd.Flags()
	if withNeurons {
		fs.IntVar(&f.neurons, "neurons", 1, "neuron count")
	}
	fs.StringVar(&f.name, "name", "", "display name")
	fs.IntVar(&f.filter, "filter", 0, "filter count")
	fs.IntVar(&f.kernel, "kernel", 0, "kernel size")
	fs.IntVar(&f.padding, "padding", 0, "padding")
	fs.IntVar(&f.strides, "strides", 0, "stride")
	fs.StringVar(&f.activation, "activation", "", "activation: relu, sigmoid, tanh, softmax")
	fs.StringVar(&f.regularization, "regularization", "", "regularization as type[:value], e.g. l2:0.01")
	fs.StringVar(&f.bias, "bias", "", "bias initializer: xavier, he, zero, random")
	fs.StringSliceVar(&f.skip, "skip", nil, "skip connection as from,to layer references")
}

func (f *layerFlags) changed(cmd *cobra.Command) bool {
	for _, name := range layerFlagNames {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			return true
		}
	}
	return false
}

// apply copies the set flags onto l. Validation happens in the registry.
func (f *layerFlags) apply(cmd *cobra.Command, l *arch.Layer) error {
	set := cmd.Flags().Changed
	if set("neurons") {
		l.Neurons = f.neurons
	}
	if set("name") {
		l.Name = f.name
	}
	if set("filter") {
		l.Filter = f.filter
	}
	if set("kernel") {
		l.Kernel = f.kernel
	}
	if set("padding") {
		l.Padding = f.padding
	}
	if set("strides") {
		l.Strides = f.strides
	}
	if set("activation") {
		l.Activation = arch.Activation(f.activation)
	}
	if set("regularization") {
		r, err := parseRegularization(f.regularization)
		if err != nil {
			return err
		}
		l.Regularization = r
	}
	if set("bias") {
		l.BiasInitializer = arch.BiasInitializer(f.bias)
	}
	if set("skip") {
		switch len(f.skip) {
		case 0:
			l.SkipConnections = [2]string{}
		case 2:
			l.SkipConnections = [2]string{f.skip[0], f.skip[1]}
		default:
			return errors.New(errors.ErrCodeInvalidInput, "--skip takes two layer references, got %d", len(f.skip))
		}
	}
	return nil
}

// =============================================================================
// Parsing Helpers
// =============================================================================

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "layer index must be an integer, got %q", s)
	}
	return i, nil
}

func parseCounts(args []string) ([]int, error) {
	counts := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "neuron count must be an integer, got %q", s)
		}
		counts[i] = n
	}
	return counts, nil
}

// parseRegularization parses "type" or "type:value". An empty string
// clears the regularization.
func parseRegularization(s string) (arch.Regularization, error) {
	if s == "" {
		return arch.Regularization{}, nil
	}
	typ, raw, hasValue := strings.Cut(s, ":")
	r := arch.Regularization{Type: arch.RegularizationType(typ)}
	if hasValue {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return r, errors.New(errors.ErrCodeInvalidInput, "regularization value must be a number, got %q", raw)
		}
		r.Value = v
	}
	return r, nil
}

// confirm asks a yes/no question on c.In. Anything but y/yes is a no.
func (c *CLI) confirm(question string) bool {
	fmt.Fprint(c.Out, StyleWarning.Render(question)+" [y/N] ")
	line, _ := bufio.NewReader(c.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// prettyJSON indents v for terminal output.
func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
