package player

import (
	"errors"
	"testing"

	"soundwave/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	closed  bool
	playing bool
	volume  float64
	seeks   []float64
	playErr error
}

func (f *fakeSource) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeSource) Pause()              { f.playing = false }
func (f *fakeSource) Seek(s float64)      { f.seeks = append(f.seeks, s) }
func (f *fakeSource) SetVolume(v float64) { f.volume = v }
func (f *fakeSource) Close()              { f.closed = true; f.playing = false }

type fakeOpener struct {
	sources []*fakeSource
	openErr error
	playErr error
}

func (f *fakeOpener) open(url string) (MediaSource, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	source := &fakeSource{playErr: f.playErr}
	f.sources = append(f.sources, source)
	return source, nil
}

func (f *fakeOpener) activeSources() int {
	active := 0
	for _, s := range f.sources {
		if !s.closed {
			active++
		}
	}
	return active
}

func track(id string) *model.PlayableTrack {
	return &model.PlayableTrack{
		Track: model.Track{ID: id, Title: id},
		URL:   "https://example.com/" + id,
	}
}

func playlist(ids ...string) []*model.PlayableTrack {
	tracks := make([]*model.PlayableTrack, len(ids))
	for i, id := range ids {
		tracks[i] = track(id)
	}
	return tracks
}

func TestNewPlayerIsIdle(t *testing.T) {
	p := New((&fakeOpener{}).open)

	snap := p.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Nil(t, snap.Current)
	assert.Equal(t, DefaultVolume, snap.Volume)
}

func TestSelectTrackStartsPlayback(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a", "b")
	p.SelectTrack(list[0], list)

	snap := p.Snapshot()
	assert.Equal(t, "playing", snap.State)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "a", snap.Current.ID)
	assert.Zero(t, snap.Elapsed)

	require.Len(t, opener.sources, 1)
	assert.True(t, opener.sources[0].playing)
	assert.Equal(t, DefaultVolume, opener.sources[0].volume)
}

func TestSelectTrackTwiceLeavesOneActiveSource(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a")
	p.SelectTrack(list[0], list)
	p.SelectTrack(list[0], list)

	assert.Len(t, opener.sources, 2)
	assert.Equal(t, 1, opener.activeSources())
	assert.True(t, opener.sources[0].closed)
	assert.False(t, opener.sources[1].closed)
}

func TestSelectTrackLoadFailureDegradesToPaused(t *testing.T) {
	opener := &fakeOpener{openErr: errors.New("unsupported format")}
	p := New(opener.open)

	list := playlist("a")
	p.SelectTrack(list[0], list)

	snap := p.Snapshot()
	assert.Equal(t, "paused", snap.State)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "a", snap.Current.ID)
}

func TestSelectTrackPlayFailureDegradesToPaused(t *testing.T) {
	opener := &fakeOpener{playErr: errors.New("network failure")}
	p := New(opener.open)

	list := playlist("a")
	p.SelectTrack(list[0], list)

	assert.Equal(t, "paused", p.Snapshot().State)
}

func TestTogglePlayPauseNoOpWhenIdle(t *testing.T) {
	p := New((&fakeOpener{}).open)

	p.TogglePlayPause()

	assert.Equal(t, "idle", p.Snapshot().State)
}

func TestTogglePlayPause(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a")
	p.SelectTrack(list[0], list)

	p.TogglePlayPause()
	assert.Equal(t, "paused", p.Snapshot().State)
	assert.False(t, opener.sources[0].playing)

	p.TogglePlayPause()
	assert.Equal(t, "playing", p.Snapshot().State)
	assert.True(t, opener.sources[0].playing)
}

func TestSeekClampsIntoDuration(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		want   float64
	}{
		{"negative", -5, 0},
		{"zero", 0, 0},
		{"within", 42.5, 42.5},
		{"beyond duration", 500, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{}
			p := New(opener.open)
			list := playlist("a")
			p.SelectTrack(list[0], list)
			p.HandleLoadedMetadata(180)

			p.Seek(tt.target)

			assert.Equal(t, tt.want, p.Snapshot().Elapsed)
			require.Len(t, opener.sources[0].seeks, 1)
			assert.Equal(t, tt.want, opener.sources[0].seeks[0])
		})
	}
}

func TestSeekKeepsPlayPauseFlag(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)
	list := playlist("a")
	p.SelectTrack(list[0], list)
	p.HandleLoadedMetadata(100)

	p.TogglePlayPause()
	p.Seek(30)
	assert.Equal(t, "paused", p.Snapshot().State)

	p.TogglePlayPause()
	p.Seek(60)
	assert.Equal(t, "playing", p.Snapshot().State)
}

func TestSetVolumeClamps(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.3, 0.3},
		{1, 1},
		{1.7, 1},
	}

	for _, tt := range tests {
		opener := &fakeOpener{}
		p := New(opener.open)
		list := playlist("a")
		p.SelectTrack(list[0], list)

		p.SetVolume(tt.input)

		assert.Equal(t, tt.want, p.Snapshot().Volume)
		assert.Equal(t, tt.want, opener.sources[0].volume)
	}
}

func TestSetVolumeValidWhileIdle(t *testing.T) {
	p := New((&fakeOpener{}).open)

	p.SetVolume(0.25)

	assert.Equal(t, 0.25, p.Snapshot().Volume)
	assert.Equal(t, "idle", p.Snapshot().State)
}

func TestNextTrackCyclesThroughEveryTrackOnceBeforeRepeat(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a", "b", "c", "d")
	p.SelectTrack(list[0], list)

	visited := make(map[string]int)
	for i := 0; i < len(list); i++ {
		visited[p.Snapshot().Current.ID]++
		p.NextTrack()
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 1, visited[id], "track %s should be visited exactly once per cycle", id)
	}
	// Back at the start after a full cycle.
	assert.Equal(t, "a", p.Snapshot().Current.ID)
}

func TestNextTrackWrapsAround(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("x", "y", "z")
	p.SelectTrack(list[1], list)

	p.NextTrack()
	assert.Equal(t, "z", p.Snapshot().Current.ID)

	p.NextTrack()
	assert.Equal(t, "x", p.Snapshot().Current.ID)
}

func TestPreviousTrackWrapsFromFirstToLast(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("x", "y", "z")
	p.SelectTrack(list[0], list)

	p.PreviousTrack()

	assert.Equal(t, "z", p.Snapshot().Current.ID)
}

func TestNextAndPreviousNoOpOnShortPlaylists(t *testing.T) {
	for _, ids := range [][]string{{}, {"only"}} {
		opener := &fakeOpener{}
		p := New(opener.open)

		list := playlist(ids...)
		if len(list) == 1 {
			p.SelectTrack(list[0], list)
		}
		before := p.Snapshot()

		p.NextTrack()
		p.PreviousTrack()

		after := p.Snapshot()
		assert.Equal(t, before.State, after.State)
		if before.Current != nil {
			assert.Equal(t, before.Current.ID, after.Current.ID)
		}
		// No new sources were opened by the no-ops.
		assert.LessOrEqual(t, len(opener.sources), 1)
	}
}

func TestCurrentSurvivesPlaylistMutation(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a", "b", "c")
	p.SelectTrack(list[1], list)

	// The playlist changes while "b" is playing; it is now at a new index.
	mutated := playlist("c", "a", "b", "d")
	p.SelectTrack(p.Snapshot().Current, mutated)

	p.NextTrack()
	assert.Equal(t, "d", p.Snapshot().Current.ID)
}

func TestTimeUpdateClampedToDuration(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)
	list := playlist("a")
	p.SelectTrack(list[0], list)
	p.HandleLoadedMetadata(60)

	p.HandleTimeUpdate(45)
	assert.Equal(t, 45.0, p.Snapshot().Elapsed)

	p.HandleTimeUpdate(90)
	assert.Equal(t, 60.0, p.Snapshot().Elapsed)

	p.HandleTimeUpdate(-1)
	assert.Equal(t, 0.0, p.Snapshot().Elapsed)
}

func TestEndedAdvancesWhenPlaylistHasMoreThanOneTrack(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a", "b")
	p.SelectTrack(list[0], list)

	p.HandleEnded()

	snap := p.Snapshot()
	assert.Equal(t, "playing", snap.State)
	assert.Equal(t, "b", snap.Current.ID)
	assert.Equal(t, 1, opener.activeSources())
}

func TestEndedOnSingleTrackPausesAndResets(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a")
	p.SelectTrack(list[0], list)
	p.HandleLoadedMetadata(30)
	p.HandleTimeUpdate(30)

	p.HandleEnded()

	snap := p.Snapshot()
	assert.Equal(t, "paused", snap.State)
	assert.Equal(t, "a", snap.Current.ID)
	assert.Zero(t, snap.Elapsed)
}

func TestMediaErrorStopsPlaybackSilently(t *testing.T) {
	opener := &fakeOpener{}
	p := New(opener.open)

	list := playlist("a", "b")
	p.SelectTrack(list[0], list)

	p.HandleError(errors.New("decode failure"))

	snap := p.Snapshot()
	assert.Equal(t, "paused", snap.State)
	assert.Equal(t, "a", snap.Current.ID)
}
