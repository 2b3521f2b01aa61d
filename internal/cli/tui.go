package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/animate"
	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
	"github.com/matzehuels/layerviz/pkg/pipeline"
)

var (
	helpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	promptStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// statusRefresh is how often the editor redraws the animation status.
const statusRefresh = 100 * time.Millisecond

// =============================================================================
// EditorModel - Interactive layer editor
// =============================================================================

type editorMode int

const (
	modeBrowse editorMode = iota
	modeConfirmRemove
	modeRename
	modeConfirmQuit
)

// frameMsg asks the editor to redraw the animation status.
type frameMsg struct{}

// snapshotMsg reports a finished SVG snapshot.
type snapshotMsg struct {
	path string
	err  error
}

// EditorModel is the bubbletea model for editing an architecture.
type EditorModel struct {
	Arch   *arch.Architecture
	Cursor int
	Dirty  bool

	mode    editorMode
	input   string
	pending int
	status  string
	failed  bool

	loop     *animate.Loop
	save     func(*arch.Architecture) error
	snapshot func(a *arch.Architecture, rotation float64, epoch uint64) (string, error)
}

// NewEditorModel creates an editor over a copy of a. save persists the
// edited architecture; snapshot (optional) renders it to a file. loop
// (optional) drives the rotation and weight epoch shown in the status bar.
func NewEditorModel(a *arch.Architecture, loop *animate.Loop,
	save func(*arch.Architecture) error,
	snapshot func(*arch.Architecture, float64, uint64) (string, error),
) EditorModel {
	return EditorModel{Arch: a.Clone(), loop: loop, save: save, snapshot: snapshot}
}

func (m EditorModel) Init() tea.Cmd {
	if m.loop == nil {
		return nil
	}
	return tickFrame()
}

func tickFrame() tea.Cmd {
	return tea.Tick(statusRefresh, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		return m, tickFrame()
	case snapshotMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("Snapshot written to " + msg.path)
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirmRemove:
			return m.updateConfirmRemove(msg)
		case modeRename:
			return m.updateRename(msg)
		case modeConfirmQuit:
			return m.updateConfirmQuit(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m EditorModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		if m.Dirty {
			m.mode = modeConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < m.Arch.Len()-1 {
			m.Cursor++
		}
	case "+", "=", "right", "l":
		m.setNeurons(m.Arch.Layers[m.Cursor].Neurons + 1)
	case "-", "left", "h":
		m.setNeurons(m.Arch.Layers[m.Cursor].Neurons - 1)
	case "a":
		if m.apply(m.Arch.Add()) {
			m.Cursor = m.Arch.Len() - 1
			m.setStatus("Added a layer")
		}
	case "d", "x":
		if m.Arch.Len() == 1 {
			m.setError(errors.New(errors.ErrCodeLastLayer, "cannot remove the last layer"))
			break
		}
		m.mode = modeConfirmRemove
		m.pending = m.Cursor
	case "K", "shift+up":
		if m.Cursor > 0 && m.apply(m.Arch.Move(m.Cursor, m.Cursor-1)) {
			m.Cursor--
		}
	case "J", "shift+down":
		if m.Cursor < m.Arch.Len()-1 && m.apply(m.Arch.Move(m.Cursor, m.Cursor+1)) {
			m.Cursor++
		}
	case "r":
		m.mode = modeRename
		m.input = m.Arch.Layers[m.Cursor].Name
	case "s":
		m.doSave()
	case "p":
		return m, m.takeSnapshot()
	}
	return m, nil
}

// setNeurons changes the selected layer's count. Going below one asks
// whether to remove the layer instead.
func (m *EditorModel) setNeurons(n int) {
	err := m.Arch.SetNeurons(m.Cursor, n)
	if errors.Is(err, errors.ErrCodeBelowMinimum) {
		if m.Arch.Len() == 1 {
			m.setError(err)
			return
		}
		m.mode = modeConfirmRemove
		m.pending = m.Cursor
		return
	}
	m.apply(err)
}

func (m EditorModel) updateConfirmRemove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		label := m.Arch.Layers[m.pending].Label(m.pending)
		if m.apply(m.Arch.Remove(m.pending)) {
			m.setStatus("Removed " + label)
			if m.Cursor >= m.Arch.Len() {
				m.Cursor = m.Arch.Len() - 1
			}
		}
		m.mode = modeBrowse
	case "n", "N", "esc", "ctrl+c":
		m.mode = modeBrowse
		m.setStatus("Kept the layer")
	}
	return m, nil
}

func (m EditorModel) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.apply(m.Arch.Rename(m.Cursor, strings.TrimSpace(m.input))) {
			m.setStatus("Renamed layer")
		}
		m.mode = modeBrowse
	case tea.KeyEsc, tea.KeyCtrlC:
		m.mode = modeBrowse
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m EditorModel) updateConfirmQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if !m.doSave() {
			m.mode = modeBrowse
			return m, nil
		}
		return m, tea.Quit
	case "n", "N":
		return m, tea.Quit
	case "esc", "ctrl+c":
		m.mode = modeBrowse
	}
	return m, nil
}

// apply records the outcome of a registry call and reports success.
func (m *EditorModel) apply(err error) bool {
	if err != nil {
		m.setError(err)
		return false
	}
	m.Dirty = true
	return true
}

func (m *EditorModel) doSave() bool {
	if m.save == nil {
		return true
	}
	if err := m.save(m.Arch); err != nil {
		m.setError(err)
		return false
	}
	m.Dirty = false
	m.setStatus("Saved")
	return true
}

func (m EditorModel) takeSnapshot() tea.Cmd {
	if m.snapshot == nil {
		return nil
	}
	a := m.Arch.Clone()
	var rotation float64
	var epoch uint64
	if m.loop != nil {
		rotation, epoch = m.loop.Rotation(), m.loop.Epoch()
	}
	snap := m.snapshot
	return func() tea.Msg {
		path, err := snap(a, rotation, epoch)
		return snapshotMsg{path: path, err: err}
	}
}

func (m *EditorModel) setStatus(s string) { m.status, m.failed = s, false }

func (m *EditorModel) setError(err error) { m.status, m.failed = errors.UserMessage(err), true }

func (m EditorModel) View() string {
	var b strings.Builder

	title := "Layer Editor"
	if m.Arch.Title != "" {
		title += " · " + m.Arch.Title
	}
	if m.Dirty {
		title += " *"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(architectureTable(m.Arch, m.Cursor))
	b.WriteString("\n")
	b.WriteString(capacityLine(m.Arch))
	if m.loop != nil {
		b.WriteString(StyleDim.Render(fmt.Sprintf(" · rotation %.2f rad · weight epoch %d", m.loop.Rotation(), m.loop.Epoch())))
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeConfirmRemove:
		b.WriteString(promptStyle.Render(fmt.Sprintf("A layer needs at least one neuron. Remove %s? [y/n]", m.Arch.Layers[m.pending].Label(m.pending))))
	case modeRename:
		b.WriteString(promptStyle.Render("Name: ") + m.input + StyleDim.Render("▏"))
	case modeConfirmQuit:
		b.WriteString(promptStyle.Render("Save changes before quitting? [y/n, esc to stay]"))
	default:
		if m.status != "" {
			if m.failed {
				b.WriteString(styleIconError.Render(iconError) + " " + StyleError.Render(m.status))
			} else {
				b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + m.status)
			}
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select  +/- neurons  a add  d remove  K/J move  r rename  s save  p snapshot  q quit"))
	return b.String()
}

// =============================================================================
// tui command
// =============================================================================

func (c *CLI) tuiCommand() *cobra.Command {
	var noAnimate bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit the network file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEditor(cmd.Context(), !noAnimate)
		},
	}
	cmd.Flags().BoolVar(&noAnimate, "no-animate", false, "do not run the rotation and weight animation")
	return cmd
}

func (c *CLI) runEditor(ctx context.Context, animated bool) error {
	n, err := c.loadNetwork()
	if err != nil {
		return err
	}

	var loop *animate.Loop
	if animated {
		opts := c.Config.AnimationOptions()
		opts.Logger = c.Logger
		loop = animate.New(opts)
		stop := loop.Start(ctx)
		defer stop()
	}

	// snapshots run off the update goroutine while saves may replace n
	var mu sync.Mutex
	save := func(a *arch.Architecture) error {
		mu.Lock()
		defer mu.Unlock()
		n.Refit(a.Clone())
		return c.saveNetwork(n)
	}
	snapshot := func(a *arch.Architecture, rotation float64, epoch uint64) (string, error) {
		runner, err := c.newRunner(ctx, false)
		if err != nil {
			return "", err
		}
		defer runner.Close()
		mu.Lock()
		fitted := *n
		mu.Unlock()
		fitted.Refit(a)
		opts := c.renderOptions(&fitted)
		opts.Formats = []string{pipeline.FormatSVG}
		opts.Labels = true
		opts.Scene.Rotation, opts.Scene.Epoch = rotation, epoch
		res, err := runner.Render(ctx, a, opts)
		if err != nil {
			return "", err
		}
		path := basePath("", c.file) + ".svg"
		if err := os.WriteFile(path, res.Artifacts[pipeline.FormatSVG], 0o644); err != nil {
			return "", fmt.Errorf("write snapshot: %w", err)
		}
		return path, nil
	}

	p := tea.NewProgram(NewEditorModel(n.Arch, loop, save, snapshot), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(EditorModel); ok && m.Dirty {
		printWarning("Quit without saving")
	}
	return nil
}
