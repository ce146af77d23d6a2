// Package editor keeps the working copy of an experience's playlist and
// persists it with a trailing-edge debounce.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/embedurl"
	"github.com/sendrec/videoexp/internal/playlist"
	"github.com/sendrec/videoexp/internal/storage"
	"github.com/sendrec/videoexp/internal/validate"
)

const (
	DefaultDebounce    = time.Second
	defaultSaveTimeout = 10 * time.Second
	subscriberBuffer   = 8
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrNotEditing    = errors.New("edit mode is off")
	ErrInvalidInput  = errors.New("invalid input")
)

// Backend is where the coordinator loads from and saves to. Both
// storage.Store and the HTTP client satisfy it.
type Backend interface {
	Get(ctx context.Context, experienceID string) (playlist.Playlist, error)
	Put(ctx context.Context, experienceID string, p playlist.Playlist) error
}

type Options struct {
	Clock       clockwork.Clock
	Debounce    time.Duration
	SaveTimeout time.Duration
	NewID       func() string
	Access      auth.Access
	Logger      *slog.Logger
}

// Source tells where Load took the working copy from.
type Source int

const (
	FromStorage Source = iota
	// FromDefaults means nothing was stored yet.
	FromDefaults
	// FromDefaultsAfterError means the stored document could not be read or
	// was invalid. Saving over it would replace data the caller never saw.
	FromDefaultsAfterError
)

type Coordinator struct {
	backend      Backend
	experienceID string
	clock        clockwork.Clock
	debounce     time.Duration
	saveTimeout  time.Duration
	newID        func() string
	access       auth.Access
	log          *slog.Logger

	mu       sync.Mutex
	state    playlist.Playlist
	selected string
	editing  bool
	status   Status
	timer    clockwork.Timer
	deadline time.Time
	gen      uint64
	inFlight bool
	changed  chan struct{}
	subs     map[int]chan Status
	nextSub  int

	// saveMu keeps at most one Put in flight.
	saveMu sync.Mutex
}

func New(backend Backend, experienceID string, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		backend:      backend,
		experienceID: experienceID,
		clock:        opts.Clock,
		debounce:     opts.Debounce,
		saveTimeout:  opts.SaveTimeout,
		newID:        opts.NewID,
		access:       opts.Access,
		log:          opts.Logger.With("experience_id", experienceID),
		state:        playlist.Default(),
		changed:      make(chan struct{}),
		subs:         make(map[int]chan Status),
	}
}

// Load replaces the working copy with the stored document, or with the
// default playlist when nothing usable is stored. It never fails; the
// returned Source says whether the defaults stand in for a read error.
func (c *Coordinator) Load(ctx context.Context) Source {
	p, err := c.backend.Get(ctx, c.experienceID)
	if err == nil {
		err = p.Validate()
	}

	source := FromStorage
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		p = playlist.Default()
		source = FromDefaults
	default:
		c.log.Warn("editor: load failed, using defaults", "error", err)
		p = playlist.Default()
		source = FromDefaultsAfterError
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.state = p.Clone()
	c.selected = ""
	if len(c.state.Videos) > 0 {
		c.selected = c.state.Videos[0].ID
	}
	c.setStatusLocked(Status{Kind: Idle})
	return source
}

func (c *Coordinator) State() playlist.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) Access() auth.Access {
	return c.access
}

// SetEditing toggles edit mode. Only admins may turn it on. This gates the
// mutation methods for the UI; the server still checks every write.
func (c *Coordinator) SetEditing(on bool) error {
	if on && !c.access.IsAdmin() {
		return auth.ErrAccessDenied
	}
	c.mu.Lock()
	c.editing = on
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

func (c *Coordinator) SetTitle(text string) error {
	if msg := validate.Title(text); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	}
	return c.mutate(func() error {
		c.state.Title = text
		return nil
	})
}

func (c *Coordinator) SetSubtitle(text string) error {
	if msg := validate.Subtitle(text); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	}
	return c.mutate(func() error {
		c.state.Subtitle = text
		return nil
	})
}

// AddVideo appends a video for rawURL and selects it.
func (c *Coordinator) AddVideo(rawURL string) (playlist.Video, error) {
	embed, ok := embedurl.ToEmbedURL(rawURL)
	if !ok {
		return playlist.Video{}, embedurl.ErrInvalidURL
	}

	var added playlist.Video
	err := c.mutate(func() error {
		if msg := validate.VideoCount(len(c.state.Videos) + 1); msg != "" {
			return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
		}
		id := c.newID()
		for c.state.Index(id) >= 0 {
			id = c.newID()
		}
		added = playlist.Video{
			ID:        id,
			Title:     playlist.NewVideoTitle,
			URL:       embed,
			Duration:  playlist.NewVideoDuration,
			CreatedAt: c.clock.Now().UTC(),
		}
		c.state.Videos = append(c.state.Videos, added)
		c.selected = id
		return nil
	})
	if err != nil {
		return playlist.Video{}, err
	}
	return added, nil
}

func (c *Coordinator) RenameVideo(id, title string) error {
	if msg := validate.VideoTitle(title); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	}
	return c.mutate(func() error {
		i := c.state.Index(id)
		if i < 0 {
			return ErrVideoNotFound
		}
		c.state.Videos[i].Title = title
		return nil
	})
}

// EditVideoURL points an existing video at a new link. The selection is by
// id, so a selected video plays the new URL right away.
func (c *Coordinator) EditVideoURL(id, rawURL string) error {
	embed, ok := embedurl.ToEmbedURL(rawURL)
	if !ok {
		return embedurl.ErrInvalidURL
	}
	return c.mutate(func() error {
		i := c.state.Index(id)
		if i < 0 {
			return ErrVideoNotFound
		}
		c.state.Videos[i].URL = embed
		return nil
	})
}

// DeleteVideo removes a video. Deleting an unknown id changes nothing and
// reports false.
func (c *Coordinator) DeleteVideo(id string) (bool, error) {
	deleted := false
	err := c.mutate(func() error {
		i := c.state.Index(id)
		if i < 0 {
			return errNoChange
		}
		c.state.Videos = append(c.state.Videos[:i:i], c.state.Videos[i+1:]...)
		if c.selected == id {
			c.selected = ""
		}
		deleted = true
		return nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return deleted, err
}

// SelectVideo changes what is playing. It is view state and never saved.
func (c *Coordinator) SelectVideo(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Index(id) < 0 {
		return ErrVideoNotFound
	}
	c.selected = id
	return nil
}

func (c *Coordinator) Selected() (playlist.Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == "" {
		return playlist.Video{}, false
	}
	return c.state.Find(c.selected)
}

var errNoChange = errors.New("no change")

// mutate applies fn under the lock and arms the save timer when fn succeeds.
func (c *Coordinator) mutate(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return ErrNotEditing
	}
	if err := fn(); err != nil {
		return err
	}
	c.armLocked()
	return nil
}

func (c *Coordinator) armLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.deadline = c.clock.Now().Add(c.debounce)
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	// A running save reports Pending itself when it finishes.
	if !c.inFlight {
		c.setStatusLocked(Status{Kind: Pending, Deadline: c.deadline})
	}
}

func (c *Coordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// fire runs when the debounce timer expires. A timer superseded by a later
// mutation or by Flush does nothing.
func (c *Coordinator) fire(gen uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	snapshot := c.beginSaveLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()
	_ = c.save(ctx, snapshot)
}

// Flush cancels any pending timer and writes the current state now.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	c.cancelTimerLocked()
	snapshot := c.beginSaveLocked()
	c.mu.Unlock()

	return c.save(ctx, snapshot)
}

func (c *Coordinator) beginSaveLocked() playlist.Playlist {
	c.inFlight = true
	c.setStatusLocked(Status{Kind: Saving})
	return c.state.Clone()
}

func (c *Coordinator) save(ctx context.Context, snapshot playlist.Playlist) error {
	err := c.backend.Put(ctx, c.experienceID, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.log.Error("editor: save failed", "error", err)
	}
	switch {
	case c.timer != nil:
		// A newer edit is scheduled; its save decides the outcome.
		next := Status{Kind: Pending, Deadline: c.deadline}
		if err != nil {
			next.Message = err.Error()
		}
		c.setStatusLocked(next)
	case err != nil:
		c.setStatusLocked(Status{Kind: Failed, Message: err.Error()})
	default:
		c.setStatusLocked(Status{Kind: Idle})
	}
	if err != nil {
		return fmt.Errorf("save playlist: %w", err)
	}
	return nil
}

func (c *Coordinator) setStatusLocked(s Status) {
	c.status = s
	close(c.changed)
	c.changed = make(chan struct{})
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			// Drop the oldest update so the newest is always delivered.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Subscribe returns a channel of status changes and a function that stops
// delivery and closes the channel. Slow readers miss intermediate states,
// never the latest one.
func (c *Coordinator) Subscribe() (<-chan Status, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Status, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// Wait blocks until no save is pending or running and returns that status.
func (c *Coordinator) Wait(ctx context.Context) (Status, error) {
	for {
		c.mu.Lock()
		s, changed := c.status, c.changed
		c.mu.Unlock()
		if s.Settled() {
			return s, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Close stops the pending timer. Unsaved edits are dropped; call Flush first
// to keep them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	if c.status.Kind == Pending {
		c.setStatusLocked(Status{Kind: Idle})
	}
}
