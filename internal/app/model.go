// Package app is the bubbletea front end: a prompt, the settings panel, and
// the live response view.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/latency"
	"github.com/gregiteen/ai-devices/internal/remote"
	"github.com/gregiteen/ai-devices/internal/settings"
	"github.com/gregiteen/ai-devices/internal/stream"
	"github.com/gregiteen/ai-devices/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNoBackend is reported when a prompt is submitted without a transport.
var ErrNoBackend = errors.New("no backend configured")

// Options wires the model's collaborators.
type Options struct {
	Settings *settings.Settings
	Reducer  *stream.Reducer
	Action   remote.Action
	Features config.FeatureConfig
	MinWidth int
	Logger   *zap.Logger
}

// Model is the root bubbletea model for the hark TUI.
type Model struct {
	settings *settings.Settings
	reducer  *stream.Reducer
	action   remote.Action
	features config.FeatureConfig
	minWidth int
	logger   *zap.Logger

	input textinput.Model
	snap  stream.Snapshot

	// UI state
	width       int
	height      int
	constrained bool
	notice      string
}

// New creates a Model in the idle state.
func New(opts Options) Model {
	if opts.Settings == nil {
		opts.Settings = settings.New()
	}
	if opts.Reducer == nil {
		opts.Reducer = stream.NewReducer()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.Prompt = "› "
	input.CharLimit = 500
	input.Focus()

	return Model{
		settings: opts.Settings,
		reducer:  opts.Reducer,
		action:   opts.Action,
		features: opts.Features,
		minWidth: opts.MinWidth,
		logger:   opts.Logger.With(zap.String("component", "app")),
		input:    input,
		snap:     opts.Reducer.Snapshot(),
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// openStreamCmd submits req and hands back the stream.
func openStreamCmd(ctx context.Context, action remote.Action, sessionID string, req remote.Request) tea.Cmd {
	return func() tea.Msg {
		if action == nil {
			return StreamOpenErrorMsg{SessionID: sessionID, Err: ErrNoBackend}
		}
		s, err := action.Submit(ctx, req)
		if err != nil {
			return StreamOpenErrorMsg{SessionID: sessionID, Err: err}
		}
		return StreamOpenedMsg{h: &handle{sessionID: sessionID, ctx: ctx, stream: s}}
	}
}

// readFragmentCmd reads the next fragment from the stream.
func readFragmentCmd(h *handle) tea.Cmd {
	return func() tea.Msg {
		raw, err := h.stream.Next(h.ctx)
		if err != nil {
			return StreamEndMsg{h: h, Err: err}
		}
		return FragmentMsg{h: h, Raw: raw}
	}
}

// clearNoticeCmd fires after a delay to clear the notice line.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.constrained = m.minWidth > 0 && msg.Width < m.minWidth
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case StreamOpenedMsg:
		h := msg.h
		if err := m.reducer.Attach(h.sessionID); err != nil {
			// A newer prompt took over while this one was connecting.
			h.stream.Close()
			return m, nil
		}
		m.refresh()
		return m, readFragmentCmd(h)

	case StreamOpenErrorMsg:
		if _, err := m.reducer.Finish(msg.SessionID, msg.Err); err != nil {
			return m, nil
		}
		m.logger.Warn("submit failed", zap.String("session", msg.SessionID), zap.Error(msg.Err))
		m.refresh()
		return m, nil

	case FragmentMsg:
		h := msg.h
		if err := m.reducer.Apply(h.sessionID, msg.Raw); err != nil {
			h.stream.Close()
			if errors.Is(err, stream.ErrSessionDone) {
				m.refresh()
			}
			return m, nil
		}
		m.refresh()
		// Continue reading fragments
		return m, readFragmentCmd(h)

	case StreamEndMsg:
		h := msg.h
		h.stream.Close()
		if _, err := m.reducer.Finish(h.sessionID, msg.Err); err != nil {
			return m, nil
		}
		m.refresh()
		return m, nil

	case ClearNoticeMsg:
		m.notice = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case KeyQuit, KeyCtrlC:
		return m, tea.Quit

	case KeySubmit:
		text := strings.TrimSpace(m.input.Value())
		if m.constrained || text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.submit(text)
	}

	for _, tk := range toggleKeys {
		if tk.key == key {
			return m.toggle(tk.name)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit begins a new session, superseding any running one.
func (m *Model) submit(text string) tea.Cmd {
	id, ctx := m.reducer.Begin(context.Background())
	m.refresh()
	req := remote.NewSubmit(text, m.settings.Snapshot(), m.gating())
	m.logger.Debug("submitting prompt", zap.String("session", id))
	return openStreamCmd(ctx, m.action, id, req)
}

func (m Model) toggle(name settings.Name) (tea.Model, tea.Cmd) {
	if !m.features.Available(name) || m.settings.Disabled(name) {
		return m, nil
	}
	on := m.settings.Toggle(name)
	if name == settings.Ludicrous && on {
		m.notice = settings.LudicrousAnnouncement
		return m, clearNoticeCmd()
	}
	return m, nil
}

func (m Model) gating() remote.Gating {
	return remote.Gating{
		TTSAvailable:      m.features.TTSToggle,
		InternetAvailable: m.features.InternetToggle,
		PhotosAvailable:   m.features.PhotosToggle,
	}
}

func (m *Model) refresh() {
	m.snap = m.reducer.Snapshot()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Response
	sections = append(sections, m.renderResponse()...)

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Prompt
	if m.constrained {
		sections = append(sections, ui.DimStyle.Render("Window too narrow to submit"))
	} else {
		sections = append(sections, m.input.View())
	}

	// Settings
	if panel := ui.RenderToggles(m.toggles()); panel != "" {
		sections = append(sections, "", panel)
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return ui.TitleStyle.Render("HARK") + "  " + m.renderStatus()
}

func (m Model) renderStatus() string {
	switch m.snap.State {
	case stream.StateSubmitted:
		return ui.SpinnerStyle.Render("◌ SUBMITTED")
	case stream.StateStreaming:
		return ui.StreamingDotStyle.Render("● STREAMING")
	case stream.StateCompleted:
		if m.snap.Err != nil {
			return ui.ErrorStyle.Render("✕ ABORTED")
		}
		return ui.StatusStyle.Render("✓ DONE")
	}
	return ui.IdleDotStyle.Render("○ IDLE")
}

func (m Model) renderResponse() []string {
	v := m.snap.View
	var lines []string

	if t := ui.RenderTranscription(v.Transcription); t != "" {
		lines = append(lines, t)
	}
	if p := ui.RenderPrimary(v, m.width-2); p != "" {
		lines = append(lines, p)
	}
	if music := ui.RenderMusic(v.MusicTrackID); music != "" {
		lines = append(lines, music)
	}
	if m.features.ShowResponseTime {
		recorded := func(s latency.Stage) bool {
			for _, r := range m.snap.Recorded {
				if r == s {
					return true
				}
			}
			return false
		}
		if l := ui.RenderLatency(m.snap.Latency, recorded, m.snap.State == stream.StateCompleted); l != "" {
			lines = append(lines, l)
		}
	}
	if m.snap.Err != nil {
		lines = append(lines, ui.ErrorTextStyle.Render(m.snap.Err.Error()))
	}
	if m.notice != "" {
		lines = append(lines, ui.SpinnerStyle.Render(m.notice))
	}
	if len(lines) == 0 {
		lines = append(lines, ui.DimStyle.Render("Type a prompt and press Enter"))
	}
	return lines
}

// toggles lists the available settings, hiding those the config turns off.
func (m Model) toggles() []ui.Toggle {
	snap := m.settings.Snapshot()
	var out []ui.Toggle
	for _, tk := range toggleKeys {
		if !m.features.Available(tk.name) {
			continue
		}
		out = append(out, ui.Toggle{
			Key:      strings.Replace(tk.key, "ctrl+", "^", 1),
			Label:    tk.label,
			On:       snap.Get(tk.name),
			Disabled: m.settings.Disabled(tk.name),
		})
	}
	return out
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"enter", "submit"},
		{"esc", "quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k.key)+" "+ui.FooterDescStyle.Render(k.desc))
	}
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(parts, "  "))
}
