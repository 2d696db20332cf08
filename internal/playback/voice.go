package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/desertthunder/songbook/internal/shared"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
)

// DecodeFunc turns an audio byte stream into a seekable beep stream. The stream owns rc.
type DecodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// DecodeMP3 is the default [DecodeFunc].
func DecodeMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(rc)
}

// Voice is one song's audio element: lazily opened on first play, paused rather than torn down.
type Voice struct {
	id   string
	url  string
	deck *Deck

	mu         sync.Mutex
	ctrl       *beep.Ctrl
	stream     beep.StreamSeekCloser
	format     beep.Format
	playing    bool
	closed     bool
	done       chan struct{}
	unregister func()
}

// ID returns the song id the voice plays.
func (v *Voice) ID() string { return v.id }

// URL returns the resolved audio URL.
func (v *Voice) URL() string { return v.url }

// Play starts or resumes the voice. Any other active voice of the same deck is paused first.
func (v *Voice) Play() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return fmt.Errorf("%w: voice %s is closed", shared.ErrPlaybackFailed, v.id)
	}
	if v.ctrl == nil {
		if err := v.load(); err != nil {
			v.mu.Unlock()
			return err
		}
	}
	v.mu.Unlock()

	v.deck.coord.Started(v.id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctrl == nil {
		return fmt.Errorf("%w: voice %s stopped while starting", shared.ErrPlaybackFailed, v.id)
	}

	out := v.deck.out
	out.Lock()
	v.ctrl.Paused = false
	out.Unlock()
	v.playing = true

	// another voice may have started while v.mu was released; its pause found v not playing yet
	if v.deck.coord.Active() != v.id {
		out.Lock()
		v.ctrl.Paused = true
		out.Unlock()
		v.playing = false
		v.deck.logger.Debug("voice superseded while starting", "song", v.id)
		return nil
	}

	v.deck.logger.Debug("voice playing", "song", v.id)
	return nil
}

// load opens, decodes and queues the stream paused. Callers hold v.mu.
func (v *Voice) load() error {
	d := v.deck

	rc, err := d.open(d.ctx, v.url)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, err)
	}

	stream, format, err := d.decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("%w: failed to decode %s: %v", shared.ErrPlaybackFailed, v.url, err)
	}

	if err := d.out.Init(d.sampleRate, d.sampleRate.N(time.Second/5)); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, err)
	}

	var s beep.Streamer = stream
	if outRate := d.out.SampleRate(); outRate != 0 && outRate != format.SampleRate {
		s = beep.Resample(4, format.SampleRate, outRate, stream)
	}

	ctrl := &beep.Ctrl{Streamer: s, Paused: true}
	v.ctrl, v.stream, v.format = ctrl, stream, format
	v.done = make(chan struct{})

	// the callback runs under the mixer lock
	d.out.Play(beep.Seq(ctrl, beep.Callback(func() { go v.finished(ctrl) })))
	return nil
}

func (v *Voice) finished(ctrl *beep.Ctrl) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctrl != ctrl {
		return
	}

	v.deck.coord.Stopped(v.id)
	v.release()
	v.deck.logger.Debug("voice finished", "song", v.id)
}

// release closes the current stream. Callers hold v.mu and have detached ctrl from the mixer or seen it end.
func (v *Voice) release() {
	if v.stream != nil {
		v.stream.Close()
	}
	if v.done != nil {
		close(v.done)
	}
	v.ctrl, v.stream, v.done = nil, nil, nil
	v.playing = false
}

// Pause silences the voice, keeping its position.
func (v *Voice) Pause() {
	v.mu.Lock()
	if v.ctrl == nil || !v.playing {
		v.mu.Unlock()
		return
	}
	out := v.deck.out
	out.Lock()
	v.ctrl.Paused = true
	out.Unlock()
	v.playing = false
	v.mu.Unlock()

	v.deck.coord.Stopped(v.id)
}

// Toggle pauses a playing voice and plays a paused one.
func (v *Voice) Toggle() (bool, error) {
	if v.Playing() {
		v.Pause()
		return false, nil
	}
	if err := v.Play(); err != nil {
		return false, err
	}
	return true, nil
}

// Stop detaches the stream from the mixer and closes it; the next Play starts from the beginning.
func (v *Voice) Stop() {
	v.mu.Lock()
	if v.ctrl != nil {
		out := v.deck.out
		out.Lock()
		v.ctrl.Streamer = nil
		out.Unlock()
		v.release()
	}
	v.mu.Unlock()

	v.deck.coord.Stopped(v.id)
}

// Close stops the voice and deregisters it; it cannot be played again.
func (v *Voice) Close() {
	v.Stop()

	v.mu.Lock()
	v.closed = true
	unregister := v.unregister
	v.unregister = nil
	v.mu.Unlock()

	if unregister != nil {
		unregister()
	}
}

// Playing reports whether the voice is audible.
func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Done is closed when the current stream ends or is stopped. Nil before the first play.
func (v *Voice) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// Position returns elapsed and total duration of the loaded stream.
func (v *Voice) Position() (time.Duration, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stream == nil {
		return 0, 0
	}

	out := v.deck.out
	out.Lock()
	pos, total := v.stream.Position(), v.stream.Len()
	out.Unlock()
	return v.format.SampleRate.D(pos), v.format.SampleRate.D(total)
}
