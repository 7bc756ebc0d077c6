package player

import (
	"sync"

	"soundwave/logger"
	"soundwave/model"
)

// State is the playback machine state.
type State int

const (
	// Idle means no track has been selected yet.
	Idle State = iota
	// LoadedPaused means a track is loaded but not advancing.
	LoadedPaused
	// LoadedPlaying means a track is loaded and advancing.
	LoadedPlaying
)

func (s State) String() string {
	switch s {
	case LoadedPaused:
		return "paused"
	case LoadedPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// MediaSource is the playback handle for one loaded track. Exactly one source
// is live at a time; the player owns it exclusively and no other component
// may touch it.
type MediaSource interface {
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64)
	// Close stops playback and releases the source.
	Close()
}

// SourceOpener loads a media source for a playback URL.
type SourceOpener func(url string) (MediaSource, error)

// DefaultVolume is the initial volume of a fresh player.
const DefaultVolume = 0.7

// Player holds the current track, the ordered playlist, and the transport
// state, and mediates every transition. All mutation goes through its
// methods; media load and playback errors are swallowed here and surface
// only as playback stopping.
type Player struct {
	mu sync.Mutex

	opener SourceOpener
	source MediaSource

	state    State
	current  *model.PlayableTrack
	playlist []*model.PlayableTrack
	elapsed  float64
	duration float64
	volume   float64
}

// New creates an idle player.
func New(opener SourceOpener) *Player {
	return &Player{
		opener: opener,
		state:  Idle,
		volume: DefaultVolume,
	}
}

// Snapshot is a copy of the observable player state.
type Snapshot struct {
	State    string                 `json:"state"`
	Current  *model.PlayableTrack   `json:"current,omitempty"`
	Playlist []*model.PlayableTrack `json:"playlist"`
	Elapsed  float64                `json:"elapsed"`
	Duration float64                `json:"duration"`
	Volume   float64                `json:"volume"`
}

// Snapshot returns the current observable state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	playlist := make([]*model.PlayableTrack, len(p.playlist))
	copy(playlist, p.playlist)

	return Snapshot{
		State:    p.state.String(),
		Current:  p.current,
		Playlist: playlist,
		Elapsed:  p.elapsed,
		Duration: p.duration,
		Volume:   p.volume,
	}
}

// SelectTrack replaces the current track and playlist atomically, tears down
// any previous media source, and starts playback of the new one. Load or
// play failures leave the machine paused on the new track.
func (p *Player) SelectTrack(track *model.PlayableTrack, playlist []*model.PlayableTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selectLocked(track, playlist)
}

func (p *Player) selectLocked(track *model.PlayableTrack, playlist []*model.PlayableTrack) {
	if track == nil {
		return
	}

	// Tear down the previous source first so two sources never overlap.
	p.teardownLocked()

	p.current = track
	p.playlist = playlist
	p.elapsed = 0
	p.duration = 0
	p.state = LoadedPlaying

	source, err := p.opener(track.URL)
	if err != nil {
		logger.Warn("Failed to load media source",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		p.state = LoadedPaused
		return
	}
	source.SetVolume(p.volume)
	p.source = source

	if err := source.Play(); err != nil {
		logger.Warn("Failed to start playback",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		p.state = LoadedPaused
	}
}

func (p *Player) teardownLocked() {
	if p.source != nil {
		p.source.Close()
		p.source = nil
	}
}

// TogglePlayPause flips between playing and paused. No-op while idle.
func (p *Player) TogglePlayPause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case LoadedPlaying:
		if p.source != nil {
			p.source.Pause()
		}
		p.state = LoadedPaused
	case LoadedPaused:
		if p.source != nil {
			if err := p.source.Play(); err != nil {
				logger.Warn("Failed to resume playback", logger.ErrorField(err))
				return
			}
		}
		p.state = LoadedPlaying
	}
}

// Seek moves the play head, clamped into [0, duration]. The play/pause flag
// is unchanged. No-op while idle.
func (p *Player) Seek(target float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}

	clamped := clamp(target, 0, p.duration)
	p.elapsed = clamped
	if p.source != nil {
		p.source.Seek(clamped)
	}
}

// SetVolume stores a volume clamped into [0, 1] and applies it to the live
// source if one exists. Valid in any state.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = clamp(v, 0, 1)
	if p.source != nil {
		p.source.SetVolume(p.volume)
	}
}

// NextTrack advances to the next playlist entry with cyclic wraparound.
// No-op when the playlist has fewer than two entries.
func (p *Player) NextTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextLocked()
}

func (p *Player) nextLocked() {
	if len(p.playlist) < 2 {
		return
	}
	next := (p.currentIndexLocked() + 1) % len(p.playlist)
	p.selectLocked(p.playlist[next], p.playlist)
}

// PreviousTrack steps back one playlist entry, wrapping from the first entry
// to the last. No-op when the playlist has fewer than two entries.
func (p *Player) PreviousTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.playlist) < 2 {
		return
	}
	index := p.currentIndexLocked()
	var prev int
	if index <= 0 {
		prev = len(p.playlist) - 1
	} else {
		prev = index - 1
	}
	p.selectLocked(p.playlist[prev], p.playlist)
}

// currentIndexLocked finds the current track in the playlist by identity, so
// the pointer survives playlist mutation. Not-found maps to 0.
func (p *Player) currentIndexLocked() int {
	if p.current == nil {
		return 0
	}
	for i, track := range p.playlist {
		if track.ID == p.current.ID {
			return i
		}
	}
	return 0
}

// HandleLoadedMetadata records the track duration reported by the media
// source.
func (p *Player) HandleLoadedMetadata(duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}
	if duration < 0 {
		duration = 0
	}
	p.duration = duration
	if p.elapsed > p.duration {
		p.elapsed = p.duration
	}
}

// HandleTimeUpdate records playback progress. Passive: the state does not
// change.
func (p *Player) HandleTimeUpdate(elapsed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}
	if p.duration > 0 {
		elapsed = clamp(elapsed, 0, p.duration)
	} else if elapsed < 0 {
		elapsed = 0
	}
	p.elapsed = elapsed
}

// HandleEnded reacts to the current track finishing: advance when the
// playlist has more than one entry, otherwise rest paused at the start.
func (p *Player) HandleEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}
	if len(p.playlist) > 1 {
		p.nextLocked()
		return
	}
	p.elapsed = 0
	p.state = LoadedPaused
}

// HandleError reacts to a media failure. The error is swallowed; the only
// visible effect is that playback stops.
func (p *Player) HandleError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}
	logger.Warn("Media playback error", logger.ErrorField(err))
	p.state = LoadedPaused
}

// Close tears down the live media source.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
