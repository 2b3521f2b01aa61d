package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/layerviz/pkg/arch"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
	colorPurple = lipgloss.Color("#482957")
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for error messages.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleNeuron  = lipgloss.NewStyle().Foreground(colorPurple)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
	iconNeuron  = "●"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printStats prints network statistics on a single line.
func printStats(layers, neurons, edges int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d layers", layers),
		fmt.Sprintf("%d neurons", neurons),
		fmt.Sprintf("%d edges", edges),
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line + StyleDim.Render(" · ") + statusStyle.Render(status))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Architecture Display
// =============================================================================

// maxDots caps the neuron dots drawn per row.
const maxDots = 24

// neuronDots draws n neuron markers, truncated past maxDots.
func neuronDots(n int) string {
	if n <= maxDots {
		return styleNeuron.Render(strings.Repeat(iconNeuron, n))
	}
	return styleNeuron.Render(strings.Repeat(iconNeuron, maxDots)) + StyleDim.Render(" …")
}

// hyperparameterSummary renders the set hyperparameters of l compactly.
func hyperparameterSummary(l *arch.Layer) string {
	var parts []string
	add := func(k string, v int) {
		if v != 0 {
			parts = append(parts, k+"="+strconv.Itoa(v))
		}
	}
	add("filter", l.Filter)
	add("kernel", l.Kernel)
	add("padding", l.Padding)
	add("strides", l.Strides)
	if l.Activation != "" {
		parts = append(parts, string(l.Activation))
	}
	if !l.Regularization.IsZero() {
		parts = append(parts, fmt.Sprintf("%s(%g)", l.Regularization.Type, l.Regularization.Value))
	}
	if l.BiasInitializer != "" {
		parts = append(parts, "bias="+string(l.BiasInitializer))
	}
	if l.SkipConnections != [2]string{} {
		parts = append(parts, "skip="+l.SkipConnections[0]+"→"+l.SkipConnections[1])
	}
	return strings.Join(parts, " ")
}

// architectureTable renders a as a bordered table, marking row cursor
// when it is in range.
func architectureTable(a *arch.Architecture, cursor int) string {
	rows := make([][]string, 0, a.Len())
	for i := range a.Layers {
		l := &a.Layers[i]
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		rows = append(rows, []string{
			mark + strconv.Itoa(i),
			l.Label(i),
			strconv.Itoa(l.Neurons),
			neuronDots(l.Neurons),
			hyperparameterSummary(l),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Layer", "Neurons", "", "Hyperparameters").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == cursor:
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			case col == 4:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// capacityLine summarises neuron usage against the ceiling.
func capacityLine(a *arch.Architecture) string {
	total, limit := a.TotalNeurons(), a.MaxNeurons()
	style := StyleNumber
	if total >= limit {
		style = StyleWarning
	}
	return StyleDim.Render(fmt.Sprintf("%d layers · ", a.Len())) +
		style.Render(fmt.Sprintf("%d/%d", total, limit)) +
		StyleDim.Render(" neurons")
}
