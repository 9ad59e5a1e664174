// Package tui drives a sprite interactively from the keyboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/animseq/internal/events"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/tui/components"
	"github.com/opencode-ai/animseq/internal/tui/styles"
)

// Snapshotter exposes a sprite's observable state.
type Snapshotter interface {
	Snapshot() models.SpriteState
}

// Options configure the driver.
type Options struct {
	Sequencer *sequencer.Sequencer
	Sprite    Snapshotter
	// Recorder supplies recent events. Optional.
	Recorder *events.Recorder
	Theme    string
	// Refresh is how often the view redraws. Default: 100ms.
	Refresh time.Duration
}

// Run launches the driver and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	m, err := newModel(opts)
	if err != nil {
		return err
	}
	if opts.Recorder != nil {
		ch, cancel := opts.Recorder.Subscribe(256)
		defer cancel()
		m.events = ch
	}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type model struct {
	seq     *sequencer.Sequencer
	sprite  Snapshotter
	ring    *events.Ring
	events  <-chan *models.Event
	styles  styles.Styles
	floor   components.Floor
	refresh time.Duration

	width   int
	height  int
	now     time.Time
	status  string
	dropped int
}

const (
	minWidth  = 60
	minHeight = 20
	logLines  = 6
)

func newModel(opts Options) (model, error) {
	if opts.Sequencer == nil {
		return model{}, errors.New("sequencer is required")
	}
	if opts.Sprite == nil {
		return model{}, errors.New("sprite is required")
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 100 * time.Millisecond
	}

	m := model{
		seq:     opts.Sequencer,
		sprite:  opts.Sprite,
		styles:  styles.StylesFor(opts.Theme),
		floor:   components.DefaultFloor(),
		refresh: opts.Refresh,
		now:     time.Now(),
	}
	if opts.Recorder != nil {
		m.ring = opts.Recorder.Ring()
	}
	return m, nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.refresh), waitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		if command, ok := CommandForKey(key); ok {
			m = m.issue(command)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(m.refresh)
	case EventMsg:
		return m, waitForEvent(m.events)
	case SubscriptionClosedMsg:
		m.events = nil
	}
	return m, nil
}

// issue enqueues command and records the outcome for the status line.
func (m model) issue(command models.Command) model {
	accepted, err := m.seq.EnqueueCommand(command)
	switch {
	case err != nil:
		m.status = m.styles.Error.Render(err.Error())
	case !accepted:
		m.dropped++
		m.status = m.styles.Warning.Render(fmt.Sprintf("%s dropped (schedule full)", command))
	default:
		m.status = m.styles.Success.Render(fmt.Sprintf("%s queued", command))
	}
	return m
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return strings.Join([]string{
			m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
			m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
			m.styles.Muted.Render("Press q to quit."),
		}, "\n") + "\n"
	}

	state := m.sprite.Snapshot()
	stats := m.seq.Stats()

	info := []string{
		m.styles.Title.Render("animseq"),
		"",
		components.RenderSequencerBadge(m.styles, m.seq.State(), stats.Failed),
		components.RenderActiveBadge(m.styles, state.Active),
		"",
		m.styles.Text.Render(fmt.Sprintf("Position  %s", state.Position)),
		m.styles.Text.Render(fmt.Sprintf("Heading   %5.1f°", float64(state.Rotation.Y)*180/math.Pi)),
		m.styles.Text.Render(fmt.Sprintf("Pose      %s", state.Pose)),
		"",
		m.styles.Text.Render(fmt.Sprintf("Active    %d/%d sequences", stats.ActiveCount, m.seq.Config().MaxSequences)),
		m.styles.Text.Render(fmt.Sprintf("Queued    %d steps", stats.QueueLength)),
		m.styles.Muted.Render(fmt.Sprintf("Applied %d  Completed %d  Dropped %d", stats.Applied, stats.Completed, stats.Dropped)),
	}
	if err := m.seq.Err(); err != nil {
		info = append(info, "", m.styles.Error.Render("Halted: "+err.Error()))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Panel.Render(m.floor.Render(m.styles, state)),
		"  ",
		strings.Join(info, "\n"),
	)

	lines := []string{top, ""}
	pending := m.seq.Pending()
	if len(pending) == 0 {
		lines = append(lines, components.EmptyQueue().RenderCompact(m.styles))
	} else {
		lines = append(lines, m.styles.Muted.Render("Next: "+strings.Join(pending, " ")))
	}
	if m.status != "" {
		lines = append(lines, m.status)
	}
	if m.ring != nil {
		lines = append(lines, "", components.RenderEventLog(m.styles, m.ring.Snapshot(), logLines))
	}
	lines = append(lines, "", m.styles.Muted.Render(helpLine))

	return strings.Join(lines, "\n") + "\n"
}

type tickMsg time.Time

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
