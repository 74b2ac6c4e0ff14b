// Package session owns the per-video review state: the loaded video, its
// annotations, the game clock, the clock region and the folder listing. UI
// layers read it through View and learn about changes through Subscribe.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jwulff/sideline/internal/annotate"
	"github.com/jwulff/sideline/internal/clock"
	"github.com/jwulff/sideline/internal/config"
	"github.com/jwulff/sideline/internal/export"
	"github.com/jwulff/sideline/internal/folder"
	"github.com/jwulff/sideline/internal/playback"
	"github.com/jwulff/sideline/internal/region"
)

var (
	ErrNoVideo        = errors.New("no video loaded")
	ErrNoRegion       = errors.New("no clock region selected")
	ErrClockDisabled  = errors.New("clock recognition is disabled")
	ErrFolderDisabled = errors.New("folder browsing is disabled")
)

// NoticeReadFailed is shown when an on-demand clock read fails.
const NoticeReadFailed = "Failed to read the game clock. Please try again."

// Kind says what part of the session changed.
type Kind int

const (
	PlaybackChanged Kind = iota
	AnnotationsChanged
	ClockChanged
	RegionChanged
	FolderChanged
	NoticeChanged
	VideoLoaded
)

// Change is delivered to observers after a mutation.
type Change struct {
	Kind Kind
}

// Options configures a Session.
type Options struct {
	Actions       []annotate.Action
	Features      config.Features
	Teams         [2]string
	ExportDir     string
	MinRegionSize float64
	// ClockRegion is installed on every video load when set.
	ClockRegion *region.Rect
}

// OptionsFromConfig maps a loaded configuration to session options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Actions:       cfg.Actions,
		Features:      cfg.Features,
		Teams:         cfg.Teams,
		ExportDir:     cfg.ExportDir,
		MinRegionSize: cfg.MinRegionSize,
	}
	if cfg.ClockRegion != nil {
		r := cfg.ClockRegion.Rect()
		opts.ClockRegion = &r
	}
	return opts
}

// View is a consistent copy of everything a UI renders.
type View struct {
	Playback    playback.State
	Annotations []annotate.Annotation
	Actions     []annotate.Action
	Features    config.Features

	GameClock  string
	ExportName string

	RegionState region.State
	Region      region.Rect
	Display     clock.Size
	ClockText   string
	ClockBusy   bool
	AutoRead    bool

	Team  string
	Teams [2]string

	Folder  string
	Entries []folder.Entry
	Current int // index of the loaded entry, -1 when none

	Notice string
}

// Session is safe for concurrent use. Observers are called without any
// session lock held.
type Session struct {
	player *playback.Controller
	reader *clock.Reader
	opts   Options

	mu         sync.Mutex
	store      *annotate.Store
	selector   *region.Selector
	browser    *folder.Browser
	display    clock.Size
	gameClock  string
	exportName string
	teams      [2]string
	team       int // index into teams, -1 for no team
	current    int
	notice     string

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int

	cancels []func()
}

// New returns a session driving player. reader may be nil when clock
// recognition is disabled.
func New(player playback.Player, reader *clock.Reader, opts Options) *Session {
	if len(opts.Actions) == 0 {
		opts.Actions = annotate.DefaultActions
	}
	if opts.Teams[0] == "" || opts.Teams[1] == "" {
		opts.Teams = folder.DefaultTeams
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if reader == nil {
		opts.Features.ClockRecognition = false
	}

	s := &Session{
		player:    playback.NewController(player),
		reader:    reader,
		opts:      opts,
		store:     annotate.NewStore(),
		selector:  region.NewSelector(opts.MinRegionSize),
		browser:   folder.NewBrowser(),
		teams:     opts.Teams,
		current:   -1,
		observers: make(map[int]func(Change)),
	}
	if !opts.Features.TeamTagging {
		s.team = -1
	}

	s.cancels = append(s.cancels, s.player.Subscribe(func(playback.State) {
		s.emit(PlaybackChanged)
	}))
	if reader != nil {
		s.cancels = append(s.cancels, reader.Subscribe(s.applyRecognition))
	}
	return s
}

// Player returns the playback controller, for key handling and for feeding
// it media signals.
func (s *Session) Player() *playback.Controller { return s.player }

// Actions returns the configured action categories.
func (s *Session) Actions() []annotate.Action { return s.opts.Actions }

// Features returns the enabled features.
func (s *Session) Features() config.Features { return s.opts.Features }

// Subscribe registers fn for every Change. The returned cancel func removes
// it.
func (s *Session) Subscribe(fn func(Change)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Session) emit(kind Kind) {
	s.obsMu.Lock()
	fns := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(Change{Kind: kind})
	}
}

// Close stops periodic clock reading and detaches from the player and
// reader.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	if s.reader != nil {
		s.reader.Close()
	}
}

// View returns a copy of the current state.
func (s *Session) View() View {
	st := s.player.State()

	var v View
	if s.reader != nil {
		v.ClockText = s.reader.LastText()
		v.ClockBusy = s.reader.Busy()
		v.AutoRead = s.reader.Auto()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v.Playback = st
	v.Annotations = s.store.List()
	v.Actions = s.opts.Actions
	v.Features = s.opts.Features
	v.GameClock = s.gameClock
	v.ExportName = s.exportName
	v.RegionState = s.selector.State()
	v.Region = s.selector.Rect()
	v.Display = s.display
	v.Team = s.teamLocked()
	v.Teams = s.teams
	v.Folder = s.browser.Dir()
	v.Entries = s.browser.Entries()
	v.Current = s.current
	v.Notice = s.notice
	return v
}

// LoadVideo opens path and resets everything tied to the previous video:
// annotations, game clock, clock region, recognized text and export name.
func (s *Session) LoadVideo(path string) error {
	if err := s.player.Load(path); err != nil {
		return err
	}
	if s.reader != nil {
		s.reader.SetAuto(false, nil)
		s.reader.Clear()
	}

	s.mu.Lock()
	s.store.Reset()
	s.resetRegionLocked()
	s.gameClock = ""
	s.exportName = export.DefaultName(path)
	s.notice = ""
	s.current = -1
	for i, e := range s.browser.Entries() {
		if e.Path == path {
			s.current = i
			break
		}
	}
	s.mu.Unlock()

	log.Printf("[INFO] session: loaded %s", path)
	s.emit(VideoLoaded)
	return nil
}

func (s *Session) resetRegionLocked() {
	s.selector.Cancel()
	if s.opts.ClockRegion != nil && s.opts.Features.ClockRecognition {
		s.selector.Set(*s.opts.ClockRegion)
	}
}

// AddAnnotation tags the current moment with the action actionID. It
// reports false, changing nothing, when no video is loaded or the action is
// unknown.
func (s *Session) AddAnnotation(actionID string) (annotate.Annotation, bool) {
	st := s.player.State()
	if !st.Loaded() {
		return annotate.Annotation{}, false
	}
	action, ok := annotate.FindAction(s.opts.Actions, actionID)
	if !ok {
		return annotate.Annotation{}, false
	}

	s.mu.Lock()
	a := s.store.Add(action, st.CurrentTime, s.gameClock, s.teamLocked())
	s.mu.Unlock()

	s.emit(AnnotationsChanged)
	return a, true
}

// AddCustom tags the current moment with a free-form label. It reports false
// when no video is loaded or the label is blank.
func (s *Session) AddCustom(label string) (annotate.Annotation, bool) {
	st := s.player.State()
	if !st.Loaded() {
		return annotate.Annotation{}, false
	}

	s.mu.Lock()
	a, err := s.store.AddCustom(label, st.CurrentTime, s.gameClock, s.teamLocked())
	s.mu.Unlock()
	if err != nil {
		return annotate.Annotation{}, false
	}

	s.emit(AnnotationsChanged)
	return a, true
}

// RemoveAnnotation deletes the annotation with id. Removing an absent id is a
// no-op that reports false.
func (s *Session) RemoveAnnotation(id int64) bool {
	s.mu.Lock()
	ok := s.store.Remove(id)
	s.mu.Unlock()
	if ok {
		s.emit(AnnotationsChanged)
	}
	return ok
}

// SeekToAnnotation moves playback to the annotation's timestamp.
func (s *Session) SeekToAnnotation(id int64) error {
	s.mu.Lock()
	a, ok := s.store.Get(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("annotation %d not found", id)
	}
	return s.player.SeekTo(a.Timestamp)
}

// SetGameClock replaces the game clock text. Manual edits and recognition
// results both land here; the last write wins.
func (s *Session) SetGameClock(text string) {
	s.mu.Lock()
	s.gameClock = text
	s.mu.Unlock()
	s.emit(ClockChanged)
}

// GameClock returns the current game clock text.
func (s *Session) GameClock() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameClock
}

// SetExportName sets the base name used for exports.
func (s *Session) SetExportName(name string) {
	s.mu.Lock()
	s.exportName = name
	s.mu.Unlock()
	s.emit(NoticeChanged)
}

// Notice returns the message for the user, if any.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// SetNotice replaces the user-facing message.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	s.notice = msg
	s.mu.Unlock()
	s.emit(NoticeChanged)
}

// ClearNotice dismisses the current message.
func (s *Session) ClearNotice() { s.SetNotice("") }

// teamLocked returns the team attached to new annotations.
func (s *Session) teamLocked() string {
	if !s.opts.Features.TeamTagging || s.team < 0 {
		return ""
	}
	return s.teams[s.team]
}

// Teams returns the two active team names.
func (s *Session) Teams() [2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teams
}

// Team returns the team attached to new annotations, "" for none.
func (s *Session) Team() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teamLocked()
}

// CycleTeam moves the selected team through first, second and none.
func (s *Session) CycleTeam() string {
	if !s.opts.Features.TeamTagging {
		return ""
	}
	s.mu.Lock()
	switch s.team {
	case 0:
		s.team = 1
	case 1:
		s.team = -1
	default:
		s.team = 0
	}
	team := s.teamLocked()
	s.mu.Unlock()

	s.emit(AnnotationsChanged)
	return team
}

// SelectFolder lists the clips in dir and takes the team names from the
// folder name, keeping the configured teams when the name has none.
func (s *Session) SelectFolder(dir string) error {
	if !s.opts.Features.FolderBrowsing {
		return ErrFolderDisabled
	}

	s.mu.Lock()
	err := s.browser.SelectFolder(dir)
	if err == nil {
		s.teams = s.browser.Teams()
		if s.teams == folder.DefaultTeams {
			s.teams = s.opts.Teams
		}
		if s.opts.Features.TeamTagging {
			s.team = 0
		}
		s.current = -1
	}
	n := s.browser.Len()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	log.Printf("[INFO] session: folder %s has %d videos", dir, n)
	s.emit(FolderChanged)
	return nil
}

// SelectFile loads the listed clip at index. Like any load, this fully
// resets the per-video state.
func (s *Session) SelectFile(index int) error {
	s.mu.Lock()
	entries := s.browser.Entries()
	s.mu.Unlock()
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("no video at index %d", index)
	}
	return s.LoadVideo(entries[index].Path)
}

// SetDisplaySize records the size of the area region coordinates are
// relative to. A selected region is rescaled with it.
func (s *Session) SetDisplaySize(w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.display
	if old.W == w && old.H == h {
		return
	}
	if old.W > 0 && old.H > 0 && w > 0 && h > 0 {
		s.selector.Rescale(w/old.W, h/old.H)
	}
	s.display = clock.Size{W: w, H: h}
}

// StartRegionSelection arms a new clock region selection, dropping the
// previous region and the last recognized text.
func (s *Session) StartRegionSelection() error {
	if !s.opts.Features.ClockRecognition {
		return ErrClockDisabled
	}
	if !s.player.State().Loaded() {
		return ErrNoVideo
	}
	s.reader.Clear()

	s.mu.Lock()
	s.selector.Start()
	s.mu.Unlock()
	s.emit(RegionChanged)
	return nil
}

// CancelRegionSelection abandons an armed or in-progress selection.
func (s *Session) CancelRegionSelection() {
	s.mu.Lock()
	st := s.selector.State()
	if st == region.Selecting || st == region.Dragging {
		s.selector.Cancel()
	}
	s.mu.Unlock()
	s.emit(RegionChanged)
}

// PointerDown begins a drag when a selection is armed.
func (s *Session) PointerDown(p region.Point) {
	s.mu.Lock()
	s.selector.PointerDown(p)
	s.mu.Unlock()
	s.emit(RegionChanged)
}

// PointerMove updates the drag rectangle.
func (s *Session) PointerMove(p region.Point) {
	s.mu.Lock()
	s.selector.PointerMove(p)
	s.mu.Unlock()
	s.emit(RegionChanged)
}

// PointerUp ends a drag. It reports true when a region was selected, in which
// case the caller should run one ReadClockNow.
func (s *Session) PointerUp() bool {
	s.mu.Lock()
	_, ok := s.selector.PointerUp()
	s.mu.Unlock()
	s.emit(RegionChanged)
	return ok
}

// snapshot captures what one recognition pass needs.
func (s *Session) snapshot() (clock.Snapshot, error) {
	st := s.player.State()
	if !st.Loaded() {
		return clock.Snapshot{}, ErrNoVideo
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.selector.Region()
	if !ok {
		return clock.Snapshot{}, ErrNoRegion
	}
	return clock.Snapshot{
		Source:  st.Source,
		At:      st.CurrentTime,
		Region:  r,
		Display: s.display,
		Native:  clock.Size{W: float64(st.NativeWidth), H: float64(st.NativeHeight)},
	}, nil
}

// ReadClockNow runs one recognition pass over the selected region. The
// result reaches the game clock through the reader's observers.
func (s *Session) ReadClockNow(ctx context.Context) error {
	if !s.opts.Features.ClockRecognition {
		return ErrClockDisabled
	}
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	s.emit(ClockChanged)

	_, err = s.reader.ReadNow(ctx, snap)
	if errors.Is(err, clock.ErrBusy) {
		s.SetNotice("Clock recognition is already running.")
	}
	return err
}

// SetAutoRead turns periodic clock reading on or off. Ticks without a
// selected region do nothing.
func (s *Session) SetAutoRead(enabled bool) error {
	if !s.opts.Features.ClockRecognition {
		return ErrClockDisabled
	}
	s.reader.SetAuto(enabled, func() (clock.Snapshot, bool) {
		snap, err := s.snapshot()
		return snap, err == nil
	})
	s.emit(ClockChanged)
	return nil
}

// ToggleAutoRead flips periodic clock reading and returns the new setting.
func (s *Session) ToggleAutoRead() (bool, error) {
	if !s.opts.Features.ClockRecognition {
		return false, ErrClockDisabled
	}
	enabled := !s.reader.Auto()
	return enabled, s.SetAutoRead(enabled)
}

// applyRecognition stores a recognition result. Successful reads of either
// mode overwrite the game clock; a failed on-demand read becomes the notice
// and a failed periodic read is only logged. Results for a video that is no
// longer loaded are dropped.
func (s *Session) applyRecognition(res clock.Result) {
	if res.Source != s.player.State().Source {
		return
	}
	if res.Err != nil {
		log.Printf("[ERROR] session: %s clock read: %v", res.Mode, res.Err)
		if res.Mode == clock.OnDemand {
			s.SetNotice(NoticeReadFailed)
			return
		}
		s.emit(ClockChanged)
		return
	}

	s.mu.Lock()
	s.gameClock = res.Text
	s.mu.Unlock()
	s.emit(ClockChanged)
}

// ExportName returns the base name used for exports.
func (s *Session) ExportName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportName
}

// Export writes all annotations in format to the export directory and
// returns the written path.
func (s *Session) Export(format export.Format) (string, error) {
	st := s.player.State()

	s.mu.Lock()
	anns := s.store.List()
	meta := export.Meta{
		Source:     st.Source,
		ExportName: s.exportName,
		HomeTeam:   s.teams[0],
		AwayTeam:   s.teams[1],
	}
	s.mu.Unlock()

	path, err := export.ToFile(s.opts.ExportDir, meta.ExportName, format, meta, anns)
	if err != nil {
		return "", err
	}
	log.Printf("[INFO] session: exported %d annotations to %s", len(anns), path)
	return path, nil
}

// ExportCSVString renders all annotations as CSV text.
func (s *Session) ExportCSVString() string {
	s.mu.Lock()
	anns := s.store.List()
	s.mu.Unlock()
	return export.CSVString(anns)
}
