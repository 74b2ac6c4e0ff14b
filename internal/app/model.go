package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/jwulff/sideline/internal/export"
	"github.com/jwulff/sideline/internal/mpv"
	"github.com/jwulff/sideline/internal/playback"
	"github.com/jwulff/sideline/internal/region"
	"github.com/jwulff/sideline/internal/session"
	"github.com/jwulff/sideline/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which list has keyboard focus.
type PanelFocus int

const (
	FocusAnnotations PanelFocus = iota
	FocusFolder
)

// inputKind says what the text input is editing.
type inputKind int

const (
	inputNone inputKind = iota
	inputCustom
	inputGameClock
	inputExportName
	inputOpen
)

func (k inputKind) label() string {
	switch k {
	case inputCustom:
		return "Custom action"
	case inputGameClock:
		return "Game clock"
	case inputExportName:
		return "Export name"
	case inputOpen:
		return "Open file or folder"
	}
	return ""
}

const (
	flashTimeout     = 5 * time.Second
	clockReadTimeout = 30 * time.Second
)

// Options configures the model.
type Options struct {
	Socket   string
	SeekStep float64
	// Open is a video file or folder opened once mpv is connected.
	Open string
}

// Model is the root bubbletea model for the sideline TUI.
type Model struct {
	sess   *session.Session
	player *mpv.Player
	keys   playback.KeyMap

	// Connection state
	socket           string
	client           *mpv.Client // command connection
	evClient         *mpv.Client // property-change events
	connected        bool
	connError        string
	reconnecting     bool
	reconnectAttempt int

	pending     string
	changes     chan session.Change
	unsubscribe func()

	// Latest session state
	view session.View

	// UI state
	focusedPanel  PanelFocus
	selectedAnn   int
	selectedEntry int
	width         int
	height        int

	input     textinput.Model
	inputKind inputKind
	spinner   spinner.Model

	// Transient messages
	flash    string
	flashErr bool
	flashSeq int

	statusText string
}

// New creates a model for sess whose media element is player.
func New(sess *session.Session, player *mpv.Player, opts Options) Model {
	changes := make(chan session.Change, 1)
	unsubscribe := sess.Subscribe(func(c session.Change) {
		// Coalesce: the model re-reads the whole session on every change.
		select {
		case changes <- c:
		default:
		}
	})

	in := textinput.New()
	in.CharLimit = 256
	in.Width = 40

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle))

	socket := opts.Socket
	if socket == "" {
		socket = mpv.SocketPath()
	}

	m := Model{
		sess:        sess,
		player:      player,
		keys:        playback.KeyMap{SeekStep: opts.SeekStep},
		socket:      socket,
		pending:     opts.Open,
		changes:     changes,
		unsubscribe: unsubscribe,
		input:       in,
		spinner:     sp,
		statusText:  "Connecting to mpv...",
	}
	m.view = sess.View()
	return m
}

// Init connects to mpv and starts listening for session changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(m.socket),
		waitForChange(m.changes),
		m.spinner.Tick,
	)
}

// connectCmd opens two mpv connections: one for commands, one for events.
func connectCmd(socket string) tea.Cmd {
	return func() tea.Msg {
		client, err := mpv.Connect(socket)
		if err != nil {
			return MpvConnectErrorMsg{Err: err}
		}
		evClient, err := mpv.Connect(socket)
		if err != nil {
			client.Close()
			return MpvConnectErrorMsg{Err: err}
		}
		return MpvConnectedMsg{Client: client, EvClient: evClient}
	}
}

// observeCmd subscribes the event client to the mirrored properties.
func observeCmd(evClient *mpv.Client) tea.Cmd {
	return func() tea.Msg {
		if err := evClient.Observe(mpv.ObservedProperties...); err != nil {
			return MpvEventErrorMsg{Err: err}
		}
		return MpvObservingMsg{}
	}
}

// readEventCmd reads the next event from the event client.
func readEventCmd(evClient *mpv.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := evClient.ReadEvent()
		if err != nil {
			return MpvEventErrorMsg{Err: err}
		}
		return MpvEventMsg{Event: ev}
	}
}

// waitForChange delivers the next session change.
func waitForChange(ch <-chan session.Change) tea.Cmd {
	return func() tea.Msg {
		return SessionChangedMsg{Change: <-ch}
	}
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// openCmd opens a folder listing or loads a single video.
func openCmd(sess *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		path = expandHome(strings.TrimSpace(path))
		info, err := os.Stat(path)
		if err != nil {
			return OpenedMsg{Path: path, Err: err}
		}
		if info.IsDir() {
			return OpenedMsg{Path: path, Folder: true, Err: sess.SelectFolder(path)}
		}
		return OpenedMsg{Path: path, Err: sess.LoadVideo(path)}
	}
}

// selectFileCmd loads the folder entry at index.
func selectFileCmd(sess *session.Session, index int) tea.Cmd {
	return func() tea.Msg {
		entries := sess.View().Entries
		var path string
		if index >= 0 && index < len(entries) {
			path = entries[index].Path
		}
		return OpenedMsg{Path: path, Err: sess.SelectFile(index)}
	}
}

// playbackKeyCmd applies a playback key binding.
func playbackKeyCmd(keys playback.KeyMap, c *playback.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		_, err := keys.HandleKey(c, key)
		return PlaybackDoneMsg{Err: err}
	}
}

// seekCmd jumps to an annotation.
func seekCmd(sess *session.Session, id int64) tea.Cmd {
	return func() tea.Msg {
		return PlaybackDoneMsg{Err: sess.SeekToAnnotation(id)}
	}
}

// readClockCmd runs one on-demand clock read.
func readClockCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), clockReadTimeout)
		defer cancel()
		return ClockReadMsg{Err: sess.ReadClockNow(ctx)}
	}
}

// exportCmd writes an export file.
func exportCmd(sess *session.Session, format export.Format) tea.Cmd {
	return func() tea.Msg {
		path, err := sess.Export(format)
		return ExportedMsg{Format: format, Path: path, Err: err}
	}
}

// copyCmd copies the CSV export to the system clipboard.
func copyCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		n := len(sess.View().Annotations)
		return CopiedMsg{Count: n, Err: clipboard.WriteAll(sess.ExportCSVString())}
	}
}

// clearFlashCmd fires after a delay to clear a transient message.
func clearFlashCmd(seq int) tea.Cmd {
	return tea.Tick(flashTimeout, func(time.Time) tea.Msg {
		return ClearFlashMsg{Seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncDisplay()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MpvConnectedMsg:
		m.client = msg.Client
		m.evClient = msg.EvClient
		m.player.SetClient(m.client)
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		log.Printf("[INFO] app: connected to mpv at %s", m.socket)
		return m, observeCmd(m.evClient)

	case MpvObservingMsg:
		cmds := []tea.Cmd{readEventCmd(m.evClient)}
		if m.pending != "" {
			cmds = append(cmds, openCmd(m.sess, m.pending))
			m.pending = ""
		}
		return m, tea.Batch(cmds...)

	case MpvConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "mpv not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case MpvEventMsg:
		m.handleEvent(msg.Event)
		m.refresh()
		return m, readEventCmd(m.evClient)

	case MpvEventErrorMsg:
		log.Printf("[WARN] app: mpv event stream: %v", msg.Err)
		m.disconnect()
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.socket)

	case SessionChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case OpenedMsg:
		m.refresh()
		if msg.Err != nil {
			return m, m.setFlash(fmt.Sprintf("Open %s: %v", msg.Path, msg.Err), true)
		}
		if msg.Folder {
			m.focusedPanel = FocusFolder
			m.selectedEntry = 0
			return m, m.setFlash(fmt.Sprintf("%d videos in %s", len(m.view.Entries), filepath.Base(msg.Path)), false)
		}
		m.selectedAnn = 0
		return m, m.setFlash("Loaded "+filepath.Base(msg.Path), false)

	case PlaybackDoneMsg:
		m.refresh()
		if msg.Err != nil {
			return m, m.setFlash(msg.Err.Error(), true)
		}
		return m, nil

	case ClockReadMsg:
		m.refresh()
		switch {
		case msg.Err == nil:
			return m, nil
		case errors.Is(msg.Err, session.ErrNoRegion):
			return m, m.setFlash("Select the clock region first (r)", true)
		case errors.Is(msg.Err, session.ErrNoVideo):
			return m, m.setFlash("Load a video first (O)", true)
		case errors.Is(msg.Err, session.ErrClockDisabled):
			return m, m.setFlash(msg.Err.Error(), true)
		}
		// Busy and recognition failures already set the session notice.
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			return m, m.setFlash(fmt.Sprintf("Export failed: %v", msg.Err), true)
		}
		return m, m.setFlash(fmt.Sprintf("Exported %d annotations to %s", len(m.view.Annotations), msg.Path), false)

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.setFlash(fmt.Sprintf("Copy failed: %v", msg.Err), true)
		}
		return m, m.setFlash(fmt.Sprintf("Copied %d annotations as CSV", msg.Count), false)

	case ClearFlashMsg:
		if msg.Seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil
	}

	if m.inputKind != inputNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleEvent feeds an mpv event into the playback controller.
func (m *Model) handleEvent(ev mpv.Event) {
	c := m.sess.Player()
	switch ev.Event {
	case "property-change":
		switch ev.Name {
		case mpv.PropTimePos:
			if v, ok := ev.Float(); ok {
				c.ObserveTime(v)
			}
		case mpv.PropDuration:
			if v, ok := ev.Float(); ok {
				c.ObserveDuration(v)
			}
		case mpv.PropPause:
			if v, ok := ev.Bool(); ok {
				c.ObservePaused(v)
			}
		case mpv.PropSpeed:
			if v, ok := ev.Float(); ok {
				c.ObserveRate(v)
			}
		case mpv.PropVolume:
			if v, ok := ev.Float(); ok {
				c.ObserveVolume(v / 100)
			}
		case mpv.PropWidth:
			if v, ok := ev.Float(); ok {
				c.ObserveDimensions(int(v), 0)
			}
		case mpv.PropHeight:
			if v, ok := ev.Float(); ok {
				c.ObserveDimensions(0, int(v))
			}
		case mpv.PropEOFReached:
			if v, ok := ev.Bool(); ok && v {
				c.ObserveEnded()
			}
		}

	case "end-file":
		if ev.Reason == "eof" {
			c.ObserveEnded()
		}

	case "shutdown":
		m.statusText = "mpv exited"
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m.quit()
	}
	if m.inputKind != inputNone {
		return m.handleInputKey(msg)
	}

	if i, ok := actionIndex(key); ok {
		actions := m.view.Actions
		if i >= len(actions) {
			return m, nil
		}
		if _, ok := m.sess.AddAnnotation(actions[i].ID); !ok {
			return m, m.setFlash("Load a video first (O)", true)
		}
		m.refresh()
		return m, nil
	}

	if m.keys.Handles(key) {
		return m, playbackKeyCmd(m.keys, m.sess.Player(), key)
	}

	switch key {
	case KeyQuit:
		return m.quit()

	case KeyEsc:
		if st := m.view.RegionState; st == region.Selecting || st == region.Dragging {
			m.sess.CancelRegionSelection()
		} else {
			m.sess.ClearNotice()
			m.flash = ""
		}
		m.refresh()
		return m, nil

	case KeyTab:
		if m.focusedPanel == FocusAnnotations && len(m.view.Entries) > 0 {
			m.focusedPanel = FocusFolder
		} else {
			m.focusedPanel = FocusAnnotations
		}
		return m, nil

	case KeyUp, KeyK:
		m.moveSelection(-1)
		return m, nil

	case KeyDown, KeyJ:
		m.moveSelection(1)
		return m, nil

	case KeyEnter:
		if m.focusedPanel == FocusFolder {
			if m.selectedEntry < len(m.view.Entries) {
				return m, selectFileCmd(m.sess, m.selectedEntry)
			}
			return m, nil
		}
		if m.selectedAnn < len(m.view.Annotations) {
			return m, seekCmd(m.sess, m.view.Annotations[m.selectedAnn].ID)
		}
		return m, nil

	case KeyDelete:
		if m.focusedPanel == FocusAnnotations && m.selectedAnn < len(m.view.Annotations) {
			m.sess.RemoveAnnotation(m.view.Annotations[m.selectedAnn].ID)
			m.refresh()
		}
		return m, nil

	case KeyCustom:
		return m, m.openInput(inputCustom, "")

	case KeyGameClock:
		return m, m.openInput(inputGameClock, m.view.GameClock)

	case KeyExportName:
		return m, m.openInput(inputExportName, m.view.ExportName)

	case KeyOpen:
		return m, m.openInput(inputOpen, m.view.Folder)

	case KeySelectRegion:
		if err := m.sess.StartRegionSelection(); err != nil {
			return m, m.setFlash(err.Error(), true)
		}
		m.refresh()
		return m, m.setFlash("Drag over the game clock in the frame panel", false)

	case KeyReadNow:
		return m, readClockCmd(m.sess)

	case KeyAutoRead:
		on, err := m.sess.ToggleAutoRead()
		if err != nil {
			return m, m.setFlash(err.Error(), true)
		}
		m.refresh()
		if on {
			return m, m.setFlash("Auto clock reading on", false)
		}
		return m, m.setFlash("Auto clock reading off", false)

	case KeyCycleTeam:
		if !m.view.Features.TeamTagging {
			return m, nil
		}
		team := m.sess.CycleTeam()
		m.refresh()
		if team == "" {
			team = "no team"
		}
		return m, m.setFlash("Tagging "+team, false)

	case KeyExportJSON:
		return m, exportCmd(m.sess, export.JSON)

	case KeyExportCSV:
		return m, exportCmd(m.sess, export.CSV)

	case KeyExportSQLite:
		return m, exportCmd(m.sess, export.SQLite)

	case KeyCopyCSV:
		return m, copyCmd(m.sess)
	}

	return m, nil
}

// handleInputKey routes keys to the focused text input.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.closeInput()
		return m, nil

	case KeyEnter:
		kind := m.inputKind
		value := m.input.Value()
		m.closeInput()
		return m.submitInput(kind, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput(kind inputKind, value string) (tea.Model, tea.Cmd) {
	switch kind {
	case inputCustom:
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		if _, ok := m.sess.AddCustom(value); !ok {
			return m, m.setFlash("Load a video first (O)", true)
		}
	case inputGameClock:
		m.sess.SetGameClock(value)
	case inputExportName:
		m.sess.SetExportName(value)
	case inputOpen:
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		return m, openCmd(m.sess, value)
	}
	m.refresh()
	return m, nil
}

func (m *Model) openInput(kind inputKind, value string) tea.Cmd {
	m.inputKind = kind
	m.input.Prompt = ui.InputLabelStyle.Render(kind.label()+": ")
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputKind = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

// handleMouse drives region selection from the frame panel.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	st := m.view.RegionState
	if st != region.Selecting && st != region.Dragging {
		return m, nil
	}
	p, inside := m.framePoint(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return m, nil
		}
		m.sess.PointerDown(p)
	case tea.MouseActionMotion:
		m.sess.PointerMove(p)
	case tea.MouseActionRelease:
		m.sess.PointerMove(p)
		if m.sess.PointerUp() {
			m.refresh()
			return m, readClockCmd(m.sess)
		}
	}
	m.refresh()
	return m, nil
}

func (m *Model) moveSelection(delta int) {
	if m.focusedPanel == FocusFolder {
		m.selectedEntry = clampIndex(m.selectedEntry+delta, len(m.view.Entries))
		return
	}
	m.selectedAnn = clampIndex(m.selectedAnn+delta, len(m.view.Annotations))
}

// refresh re-reads the session and keeps selections in range.
func (m *Model) refresh() {
	m.view = m.sess.View()
	m.selectedAnn = clampIndex(m.selectedAnn, len(m.view.Annotations))
	m.selectedEntry = clampIndex(m.selectedEntry, len(m.view.Entries))
	if len(m.view.Entries) == 0 && m.focusedPanel == FocusFolder {
		m.focusedPanel = FocusAnnotations
	}
	m.syncDisplay()
}

// syncDisplay tells the session how large the frame panel is.
func (m *Model) syncDisplay() {
	if m.width == 0 {
		return
	}
	cols, rows := m.frameSize()
	m.sess.SetDisplaySize(float64(cols)*cellW, float64(rows)*cellH)
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashErr = isErr
	if isErr {
		log.Printf("[WARN] app: %s", text)
	}
	return clearFlashCmd(m.flashSeq)
}

func (m *Model) disconnect() {
	m.connected = false
	m.player.SetClient(nil)
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	if m.evClient != nil {
		m.evClient.Close()
		m.evClient = nil
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.connected {
		if err := m.player.Quit(); err != nil {
			log.Printf("[WARN] app: quit mpv: %v", err)
		}
	}
	m.disconnect()
	return m, tea.Quit
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
