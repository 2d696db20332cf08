package playback

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/gopxl/beep"
)

// silentStream yields n samples of silence.
type silentStream struct {
	mu     sync.Mutex
	n, pos int
	closed bool
}

func (s *silentStream) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := range samples[:k] {
		samples[i] = [2]float64{}
	}
	s.pos += k
	return k, true
}

func (s *silentStream) Err() error    { return nil }
func (s *silentStream) Len() int      { return s.n }
func (s *silentStream) Position() int { return s.pos }

func (s *silentStream) Seek(p int) error {
	s.pos = p
	return nil
}

func (s *silentStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *silentStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeOutput collects streamers instead of sending them to a device.
type fakeOutput struct {
	mu        sync.Mutex
	sr        beep.SampleRate
	inits     int
	streamers []beep.Streamer
}

func (o *fakeOutput) Init(sr beep.SampleRate, _ int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inits == 0 {
		o.sr = sr
	}
	o.inits++
	return nil
}

func (o *fakeOutput) SampleRate() beep.SampleRate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sr
}

func (o *fakeOutput) Play(s ...beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = append(o.streamers, s...)
}

func (o *fakeOutput) Lock()   { o.mu.Lock() }
func (o *fakeOutput) Unlock() { o.mu.Unlock() }

func (o *fakeOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.streamers)
}

// drain pulls samples from every streamer, dropping the ones that end.
func (o *fakeOutput) drain() {
	o.mu.Lock()
	defer o.mu.Unlock()

	buf := make([][2]float64, 512)
	for range 16 {
		live := o.streamers[:0]
		for _, s := range o.streamers {
			if _, ok := s.Stream(buf); ok {
				live = append(live, s)
			}
		}
		o.streamers = live
	}
}

type harness struct {
	deck    *Deck
	out     *fakeOutput
	mu      sync.Mutex
	opened  []string
	streams []*silentStream
	openErr error
}

func (h *harness) open(_ context.Context, url string) (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	h.opened = append(h.opened, url)
	return io.NopCloser(strings.NewReader("ID3")), nil
}

func (h *harness) decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &silentStream{n: 1024}
	h.streams = append(h.streams, s)
	return s, beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}, nil
}

func (h *harness) openCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.opened)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{out: &fakeOutput{}}
	h.deck = NewDeck(Config{
		BaseURL:    "http://catalog.test",
		SampleRate: 44100,
		Output:     h.out,
		Open:       h.open,
		Decode:     h.decode,
	})
	t.Cleanup(h.deck.Close)
	return h
}

func song(id string) models.Song {
	return models.Song{ID: models.ID(id), Title: "Song " + id, SongURL: "/audio/" + id + ".mp3"}
}

type pauser struct {
	mu     sync.Mutex
	paused int
}

func (p *pauser) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused++
}

func (p *pauser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// onPause runs fn when paused.
type onPause struct{ fn func() }

func (p *onPause) Pause() { p.fn() }

func TestCoordinator(t *testing.T) {
	t.Run("Starting A Voice Pauses The Previous One", func(t *testing.T) {
		c := NewCoordinator()
		a, b := &pauser{}, &pauser{}
		c.Register("a", a)
		c.Register("b", b)

		c.Started("a")
		if a.count() != 0 {
			t.Errorf("first voice should not be paused, got %d", a.count())
		}

		c.Started("b")
		if a.count() != 1 {
			t.Errorf("expected a to be paused once, got %d", a.count())
		}
		if b.count() != 0 {
			t.Errorf("expected b untouched, got %d", b.count())
		}
		if c.Active() != "b" {
			t.Errorf("expected active b, got %q", c.Active())
		}
	})

	t.Run("Restarting The Active Voice Does Not Pause It", func(t *testing.T) {
		c := NewCoordinator()
		a := &pauser{}
		c.Register("a", a)
		c.Started("a")
		c.Started("a")
		if a.count() != 0 {
			t.Errorf("expected no pause, got %d", a.count())
		}
	})

	t.Run("Stopped Only Clears Matching Voice", func(t *testing.T) {
		c := NewCoordinator()
		c.Register("a", &pauser{})
		c.Register("b", &pauser{})
		c.Started("b")

		c.Stopped("a")
		if c.Active() != "b" {
			t.Errorf("expected b to stay active, got %q", c.Active())
		}
		c.Stopped("b")
		if c.Active() != "" {
			t.Errorf("expected no active voice, got %q", c.Active())
		}
	})

	t.Run("Unregister Clears Active Reference", func(t *testing.T) {
		c := NewCoordinator()
		a, b := &pauser{}, &pauser{}
		unregister := c.Register("a", a)
		c.Register("b", b)
		c.Started("a")

		unregister()
		if c.Active() != "" {
			t.Errorf("expected active cleared, got %q", c.Active())
		}

		c.Started("b")
		if a.count() != 0 {
			t.Errorf("unregistered voice must not be paused, got %d", a.count())
		}
	})
}

func TestDeck(t *testing.T) {
	t.Run("Song Without Source", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.deck.Play(models.Song{ID: "9", Title: "Silent"})
		if !errors.Is(err, shared.ErrNoSource) {
			t.Fatalf("expected ErrNoSource, got %v", err)
		}
		if h.openCount() != 0 {
			t.Error("expected no stream to be opened")
		}
	})

	t.Run("Resolves Relative URLs Against Base", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.deck.Play(song("1")); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if h.opened[0] != "http://catalog.test/audio/1.mp3" {
			t.Errorf("unexpected url %q", h.opened[0])
		}
	})

	t.Run("At Most One Voice Plays", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.deck.Play(song("1"))
		if err != nil {
			t.Fatalf("play 1 failed: %v", err)
		}
		b, err := h.deck.Play(song("2"))
		if err != nil {
			t.Fatalf("play 2 failed: %v", err)
		}

		if a.Playing() {
			t.Error("expected song 1 to be paused when song 2 started")
		}
		if !b.Playing() {
			t.Error("expected song 2 to be playing")
		}
		if h.deck.Active() != "2" {
			t.Errorf("expected active 2, got %q", h.deck.Active())
		}
		if !h.deck.Playing("2") || h.deck.Playing("1") {
			t.Error("deck playing state disagrees with voices")
		}
	})

	t.Run("Toggle Pauses And Resumes Without Reopening", func(t *testing.T) {
		h := newHarness(t)
		s := song("1")

		playing, err := h.deck.Toggle(s)
		if err != nil || !playing {
			t.Fatalf("expected playing, got %v (err=%v)", playing, err)
		}

		playing, err = h.deck.Toggle(s)
		if err != nil || playing {
			t.Fatalf("expected paused, got %v (err=%v)", playing, err)
		}
		if h.deck.Active() != "" {
			t.Errorf("expected no active song after pause, got %q", h.deck.Active())
		}

		if _, err := h.deck.Toggle(s); err != nil {
			t.Fatalf("resume failed: %v", err)
		}
		if h.openCount() != 1 {
			t.Errorf("expected a single open, got %d", h.openCount())
		}
		if h.out.count() != 1 {
			t.Errorf("expected one streamer in the mixer, got %d", h.out.count())
		}
	})

	t.Run("Natural End Clears Active", func(t *testing.T) {
		h := newHarness(t)
		v, err := h.deck.Play(song("1"))
		if err != nil {
			t.Fatalf("play failed: %v", err)
		}
		done := v.Done()

		h.out.drain()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("voice did not finish")
		}
		if v.Playing() {
			t.Error("expected voice to stop at end of stream")
		}
		if h.deck.Active() != "" {
			t.Errorf("expected no active song, got %q", h.deck.Active())
		}
		if !h.streams[0].isClosed() {
			t.Error("expected stream to be closed")
		}

		if _, err := h.deck.Play(song("1")); err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if h.openCount() != 2 {
			t.Errorf("expected replay to reopen, got %d opens", h.openCount())
		}
	})

	t.Run("Paused Voice Survives Drain", func(t *testing.T) {
		h := newHarness(t)
		a, _ := h.deck.Play(song("1"))
		h.deck.Play(song("2"))

		h.out.drain()

		pos, total := a.Position()
		if total == 0 || pos >= total {
			t.Errorf("expected paused voice to keep its position, got %v/%v", pos, total)
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		h := newHarness(t)
		h.openErr = errors.New("connection refused")

		_, err := h.deck.Play(song("1"))
		if !errors.Is(err, shared.ErrPlaybackFailed) {
			t.Fatalf("expected ErrPlaybackFailed, got %v", err)
		}
		if h.deck.Active() != "" {
			t.Errorf("failed play must not become active, got %q", h.deck.Active())
		}
	})

	t.Run("Voice Started Mid-Play Keeps Exclusivity", func(t *testing.T) {
		h := newHarness(t)
		coord := h.deck.Coordinator()

		// pausing the previously active voice starts another one before the new voice unpauses
		coord.Register("x", &onPause{fn: func() { coord.Started("9") }})
		coord.Started("x")

		v, err := h.deck.Play(song("1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Playing() {
			t.Error("expected voice superseded during start to stay paused")
		}
		if h.deck.Active() != "9" {
			t.Errorf("expected the later voice to stay active, got %q", h.deck.Active())
		}

		if _, err := h.deck.Play(song("1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !h.deck.Playing("1") || h.deck.Active() != "1" {
			t.Error("expected a later play to resume the voice")
		}
	})

	t.Run("StopAll", func(t *testing.T) {
		h := newHarness(t)
		v, _ := h.deck.Play(song("1"))

		h.deck.StopAll()
		if v.Playing() || h.deck.Active() != "" {
			t.Error("expected all voices stopped")
		}
		if !h.streams[0].isClosed() {
			t.Error("expected stream closed")
		}
	})

	t.Run("Close", func(t *testing.T) {
		h := newHarness(t)
		v, _ := h.deck.Play(song("1"))

		h.deck.Close()
		if v.Playing() {
			t.Error("expected voice stopped")
		}
		if err := v.Play(); !errors.Is(err, shared.ErrPlaybackFailed) {
			t.Errorf("expected closed voice to refuse play, got %v", err)
		}
		if _, err := h.deck.Play(song("2")); !errors.Is(err, shared.ErrPlaybackFailed) {
			t.Errorf("expected closed deck to refuse play, got %v", err)
		}
	})
}
