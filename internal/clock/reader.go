// Package clock reads the on-screen game clock: it captures the selected
// region of the current frame and passes it to a text recognizer, either on
// demand or periodically.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jwulff/sideline/internal/region"
)

// Defaults for Options.
const (
	DefaultInterval = time.Second
	DefaultLanguage = "eng"
	DefaultTimeout  = 20 * time.Second
)

// ErrBusy is returned by ReadNow while another recognition pass is running.
var ErrBusy = errors.New("clock recognition already in progress")

// Mode says how a pass was started.
type Mode int

const (
	OnDemand Mode = iota
	Periodic
)

func (m Mode) String() string {
	if m == Periodic {
		return "periodic"
	}
	return "on-demand"
}

// Result is published to observers after every pass.
type Result struct {
	Source string
	Text   string
	Err    error
	Mode   Mode
}

// Snapshot is everything one pass needs, captured at scheduling time.
type Snapshot struct {
	Source  string
	At      float64
	Region  region.Rect
	Display Size
	Native  Size
}

// SnapshotFunc returns the current snapshot, or false when no pass should
// run (no video or no region).
type SnapshotFunc func() (Snapshot, bool)

// Options configures a Reader.
type Options struct {
	Language string
	Interval time.Duration
	// Timeout bounds periodic passes, which have no caller context.
	Timeout time.Duration
}

// Reader runs recognition passes. At most one pass is in flight at a time.
type Reader struct {
	grabber    Grabber
	recognizer Recognizer
	opts       Options

	mu       sync.Mutex
	busy     bool
	lastText string
	stop     chan struct{}
	driver   chan struct{} // closed when the periodic driver exits

	obsMu     sync.Mutex
	observers map[int]func(Result)
	nextObs   int
}

// NewReader returns a reader using the given collaborators.
func NewReader(g Grabber, r Recognizer, opts Options) *Reader {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Reader{
		grabber:    g,
		recognizer: r,
		opts:       opts,
		observers:  make(map[int]func(Result)),
	}
}

// Subscribe registers fn for every Result. Observers run on the goroutine
// that finished the pass. The returned cancel func removes fn.
func (r *Reader) Subscribe(fn func(Result)) (cancel func()) {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.obsMu.Lock()
			delete(r.observers, id)
			r.obsMu.Unlock()
		})
	}
}

func (r *Reader) publish(res Result) {
	r.obsMu.Lock()
	fns := make([]func(Result), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.Unlock()
	for _, fn := range fns {
		fn(res)
	}
}

// Busy reports whether a pass is in flight.
func (r *Reader) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// LastText returns the most recently recognized text.
func (r *Reader) LastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastText
}

// Clear forgets the last recognized text.
func (r *Reader) Clear() {
	r.mu.Lock()
	r.lastText = ""
	r.mu.Unlock()
}

// Auto reports whether periodic reading is enabled.
func (r *Reader) Auto() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Reader) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return false
	}
	r.busy = true
	return true
}

func (r *Reader) release() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

// ReadNow runs one pass synchronously. It returns ErrBusy without starting
// when a pass is already running. Failures leave LastText unchanged.
func (r *Reader) ReadNow(ctx context.Context, snap Snapshot) (string, error) {
	if !r.tryAcquire() {
		return "", ErrBusy
	}
	defer r.release()
	return r.pass(ctx, snap, OnDemand)
}

// pass captures, recognizes and publishes. The caller holds the busy flag.
func (r *Reader) pass(ctx context.Context, snap Snapshot, mode Mode) (string, error) {
	text, err := r.recognize(ctx, snap)
	if err != nil {
		r.publish(Result{Source: snap.Source, Err: err, Mode: mode})
		return "", err
	}

	r.mu.Lock()
	r.lastText = text
	r.mu.Unlock()

	r.publish(Result{Source: snap.Source, Text: text, Mode: mode})
	return text, nil
}

func (r *Reader) recognize(ctx context.Context, snap Snapshot) (string, error) {
	crop, err := Project(snap.Region, snap.Display, snap.Native)
	if err != nil {
		return "", fmt.Errorf("project region: %w", err)
	}
	img, err := r.grabber.Grab(ctx, snap.Source, snap.At, crop)
	if err != nil {
		return "", fmt.Errorf("capture frame: %w", err)
	}
	text, err := r.recognizer.Recognize(ctx, img, r.opts.Language, func(p Progress) {
		log.Printf("[DEBUG] clock: %s %.0f%%", p.Status, p.Progress*100)
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// SetAuto starts or stops periodic reading. While enabled, every Interval
// the reader asks source for a snapshot and starts a pass unless one is
// already running; a busy tick is skipped, not queued. Disabling stops
// scheduling only: a pass in flight runs to completion, but once SetAuto
// returns no new pass starts.
func (r *Reader) SetAuto(enabled bool, source SnapshotFunc) {
	r.mu.Lock()
	if !enabled {
		driver := r.driver
		if r.stop != nil {
			close(r.stop)
			r.stop = nil
		}
		r.mu.Unlock()

		if driver != nil {
			<-driver
		}
		return
	}
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.driver = make(chan struct{})
	go r.runAuto(r.stop, r.driver, source)
}

func (r *Reader) runAuto(stop <-chan struct{}, done chan<- struct{}, source SnapshotFunc) {
	defer close(done)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick(stop, source)
		}
	}
}

// tick starts one periodic pass in the background. It reports whether a
// pass was started. Nothing starts once stop is closed.
func (r *Reader) tick(stop <-chan struct{}, source SnapshotFunc) bool {
	snap, ok := source()
	if !ok {
		return false
	}
	select {
	case <-stop:
		return false
	default:
	}
	if !r.tryAcquire() {
		return false
	}
	go func() {
		defer r.release()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
		defer cancel()
		if _, err := r.pass(ctx, snap, Periodic); err != nil {
			log.Printf("[WARN] clock: periodic read failed: %v", err)
		}
	}()
	return true
}

// Close stops periodic reading and waits for the driver goroutine to exit.
func (r *Reader) Close() {
	r.mu.Lock()
	driver := r.driver
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.mu.Unlock()

	if driver != nil {
		<-driver
	}
}
