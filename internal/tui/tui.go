// Package tui provides a Bubble Tea terminal user interface for moov-dl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/handiism/moov-downloader/internal/config"
	"github.com/handiism/moov-downloader/internal/download"
	"github.com/handiism/moov-downloader/internal/moov"
	"go.uber.org/zap"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Message types
type (
	// ProgressMsg carries a manager progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// SegmentMsg reports segment progress of the current track.
	SegmentMsg struct {
		Title string
		Done  int
		Total int
	}

	// DownloadDoneMsg is sent when the run finishes.
	DownloadDoneMsg struct {
		Results []download.AlbumResult
		Err     error
	}
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logger    *zap.Logger
	logs      []LogEntry
	err       error

	// Run state
	ctx     context.Context
	cancel  context.CancelFunc
	manager *download.Manager
	events  chan tea.Msg

	segment SegmentMsg
	results []download.AlbumResult

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model. settings must already be valid.
func NewModel(settings *config.Settings, logger *zap.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "https://moov.hk/#/album/..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logger:    logger,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case "esc":
			switch m.state {
			case StateInput:
				return m, tea.Quit
			case StateDownloading:
				if m.manager != nil && m.manager.SkipCurrentAlbum() {
					m = m.appendLog(LogEntry{Message: "Skipping current album...", Level: download.LevelWarning})
				}
			}
			return m, nil

		case "enter":
			if m.state == StateInput {
				return m.start()
			}

		case "tab":
			if m.state == StateInput {
				m = m.toggleQuality()
				return m, nil
			}

		case "ctrl+l":
			if m.state == StateInput {
				m.settings.Lyrics = !m.settings.Lyrics
				return m, nil
			}

		case "ctrl+k":
			if m.state == StateInput {
				m.settings.KeepCover = !m.settings.KeepCover
				return m, nil
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.settings.CreatePlaylist = !m.settings.CreatePlaylist
				return m, nil
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m = m.appendLog(LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		}
		cmds = append(cmds, waitForEvent(m.events))

	case SegmentMsg:
		m.segment = msg
		var percent float64
		if msg.Total > 0 {
			percent = float64(msg.Done) / float64(msg.Total)
		}
		cmds = append(cmds, m.progress.SetPercent(percent), waitForEvent(m.events))

	case DownloadDoneMsg:
		m.results = msg.Results
		m.manager = nil
		m.events = nil
		if m.cancel != nil {
			m.cancel()
		}
		switch {
		case msg.Err != nil && download.Classify(msg.Err) == download.KindCancelled:
			m.state = StateError
			m.err = errors.New("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) appendLog(entry LogEntry) Model {
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
	return m
}

func (m Model) toggleQuality() Model {
	if m.settings.Quality == 2 {
		m.settings.Quality = 1
	} else {
		m.settings.Quality = 2
	}
	return m
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.results = nil
	m.segment = SegmentMsg{}
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

// start collects the URLs and launches the manager in the background.
func (m Model) start() (tea.Model, tea.Cmd) {
	urls, err := moov.CollectURLs(strings.FieldsFunc(m.textInput.Value(), func(r rune) bool {
		return r == ' ' || r == ','
	}))
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}
	if len(urls) == 0 {
		return m, nil
	}

	m.state = StateDownloading
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = make(chan tea.Msg, 64)

	events := m.events
	m.manager = download.NewManager(m.settings, func(event download.ProgressEvent) {
		events <- ProgressMsg{Event: event}
	},
		download.WithLogger(m.logger),
		download.WithBarFactory(func(total int, description string) download.SegmentBar {
			return &segmentBar{events: events, title: description, total: total}
		}),
	)

	manager, ctx := m.manager, m.ctx
	go func() {
		results, err := manager.Run(ctx, urls)
		events <- DownloadDoneMsg{Results: results, Err: err}
	}()

	return m, tea.Batch(waitForEvent(events), m.spinner.Tick)
}

// waitForEvent delivers the next message from the running manager.
func waitForEvent(events chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}

// segmentBar forwards segment progress to the UI.
type segmentBar struct {
	events chan<- tea.Msg
	title  string
	total  int
	done   atomic.Int64
}

func (b *segmentBar) Add(n int) error {
	done := b.done.Add(int64(n))
	b.events <- SegmentMsg{Title: b.title, Done: int(done), Total: b.total}
	return nil
}

func (b *segmentBar) Exit() error {
	return nil
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MOOV Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download albums from MOOV as FLAC"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter album URLs or .txt files:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	quality := "24-bit FLAC (HR)"
	if m.settings.Quality == 1 {
		quality = "16-bit FLAC (LL)"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Quality: %s (tab)\n", quality)
	fmt.Fprintf(&b, "  %s Lyrics (ctrl+l)\n", checkbox(m.settings.Lyrics))
	fmt.Fprintf(&b, "  %s Keep cover (ctrl+k)\n", checkbox(m.settings.KeepCover))
	fmt.Fprintf(&b, "  %s Create playlist (ctrl+p)\n", checkbox(m.settings.CreatePlaylist))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+v)\n", checkbox(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s", m.settings.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	if m.segment.Total > 0 {
		b.WriteString(trackStyle.Render(m.segment.Title))
		b.WriteString("\n")
		b.WriteString(m.progress.View())
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("Segments: %d/%d", m.segment.Done, m.segment.Total)))
	} else {
		b.WriteString(subtitleStyle.Render("Signing in..."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

// summary counts track outcomes over all albums.
func (m Model) summary() (downloaded, skipped, failed int, size uint64) {
	for _, album := range m.results {
		for _, track := range album.Tracks {
			switch track.Status {
			case download.TrackDownloaded:
				downloaded++
				if info, err := os.Stat(track.Path); err == nil {
					size += uint64(info.Size())
				}
			case download.TrackSkipped:
				skipped++
			default:
				failed++
			}
		}
	}
	return downloaded, skipped, failed, size
}

func (m Model) viewComplete() string {
	downloaded, skipped, failed, size := m.summary()

	box := boxStyle.Render(fmt.Sprintf(
		"Download Complete!\n\n"+
			"Albums: %d\n"+
			"Tracks: %d downloaded, %d skipped, %d failed\n"+
			"Size: %s",
		len(m.results),
		downloaded, skipped, failed,
		humanize.Bytes(size),
	))
	return box + "\n\n" + m.renderLogs()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n\n", m.err.Error())
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start | tab: quality | ctrl+l/k/p/v: toggle options | esc: quit"
	case StateDownloading:
		return "esc: skip album | ctrl+c: quit"
	case StateComplete, StateError:
		return "r: new download | q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
