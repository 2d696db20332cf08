package playback

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/gopxl/beep"
)

const defaultSampleRate = 44100

// Config wires a [Deck]. Zero values select the speaker, HTTP streaming and MP3 decoding.
type Config struct {
	BaseURL    string // resolves relative song URLs
	SampleRate int
	BufferKB   int
	UserAgent  string
	Output     Output
	Open       Opener
	Decode     DecodeFunc
	Logger     *log.Logger
}

// NewConfig fills a [Config] from the [playback] and [catalog] config sections.
func NewConfig(cfg *shared.Config, logger *log.Logger) Config {
	return Config{
		BaseURL:    cfg.Catalog.BaseURL,
		SampleRate: cfg.Playback.SampleRate,
		BufferKB:   cfg.Playback.BufferKB,
		UserAgent:  cfg.Catalog.UserAgent,
		Logger:     logger,
	}
}

// Deck owns the voices of one view and the coordinator that keeps them exclusive.
type Deck struct {
	baseURL    string
	sampleRate beep.SampleRate
	out        Output
	open       Opener
	decode     DecodeFunc
	logger     *log.Logger
	coord      *Coordinator

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	voices map[string]*Voice
}

func NewDeck(cfg Config) *Deck {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Output == nil {
		cfg.Output = Speaker()
	}
	if cfg.Open == nil {
		cfg.Open = HTTPOpener(nil, cfg.UserAgent, cfg.BufferKB*1024)
	}
	if cfg.Decode == nil {
		cfg.Decode = DecodeMP3
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Deck{
		baseURL:    cfg.BaseURL,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		out:        cfg.Output,
		open:       cfg.Open,
		decode:     cfg.Decode,
		logger:     cfg.Logger,
		coord:      NewCoordinator(),
		ctx:        ctx,
		cancel:     cancel,
		voices:     map[string]*Voice{},
	}
}

// Coordinator exposes the deck's exclusivity coordinator.
func (d *Deck) Coordinator() *Coordinator { return d.coord }

// Voice returns the voice for song, creating and registering it on first use.
func (d *Deck) Voice(song models.Song) (*Voice, error) {
	if song.SongURL == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoSource, song.ID)
	}
	if d.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: deck closed", shared.ErrPlaybackFailed)
	}

	id := song.ID.String()
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.voices[id]; ok {
		return v, nil
	}

	v := &Voice{id: id, url: shared.ResolveURL(d.baseURL, song.SongURL), deck: d}
	v.unregister = d.coord.Register(id, v)
	d.voices[id] = v
	return v, nil
}

// Play starts song, pausing whichever voice was active.
func (d *Deck) Play(song models.Song) (*Voice, error) {
	v, err := d.Voice(song)
	if err != nil {
		return nil, err
	}
	if err := v.Play(); err != nil {
		d.logger.Error("playback failed", "song", song.ID, "url", v.URL(), "error", err)
		return nil, err
	}
	return v, nil
}

// Toggle pauses song if it is playing and plays it otherwise. Returns whether it is now playing.
func (d *Deck) Toggle(song models.Song) (bool, error) {
	v, err := d.Voice(song)
	if err != nil {
		return false, err
	}
	playing, err := v.Toggle()
	if err != nil {
		d.logger.Error("playback failed", "song", song.ID, "url", v.URL(), "error", err)
	}
	return playing, err
}

// Active returns the id of the audible song, or "".
func (d *Deck) Active() models.ID {
	return models.ID(d.coord.Active())
}

// Playing reports whether song id is audible.
func (d *Deck) Playing(id models.ID) bool {
	d.mu.Lock()
	v, ok := d.voices[id.String()]
	d.mu.Unlock()
	return ok && v.Playing()
}

// StopAll stops every voice of the deck; the deck stays usable.
func (d *Deck) StopAll() {
	for _, v := range d.snapshot() {
		v.Stop()
	}
}

// Close stops and deregisters every voice and cancels open streams.
func (d *Deck) Close() {
	d.cancel()
	voices := d.snapshot()

	d.mu.Lock()
	d.voices = map[string]*Voice{}
	d.mu.Unlock()

	for _, v := range voices {
		v.Close()
	}
}

func (d *Deck) snapshot() []*Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Voice, 0, len(d.voices))
	for _, v := range d.voices {
		out = append(out, v)
	}
	return out
}
