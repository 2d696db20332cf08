package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output is the mixer voices play into.
type Output interface {
	// Init prepares the device; repeated calls are no-ops.
	Init(sr beep.SampleRate, bufferSize int) error
	SampleRate() beep.SampleRate
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
}

// speakerOutput plays through the system audio device. The device is initialized once per process.
type speakerOutput struct {
	once sync.Once
	sr   beep.SampleRate
	err  error
}

var defaultSpeaker = &speakerOutput{}

// Speaker returns the process-wide speaker output.
func Speaker() Output {
	return defaultSpeaker
}

func (s *speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	s.once.Do(func() {
		if bufferSize <= 0 {
			bufferSize = sr.N(time.Second / 5)
		}
		s.sr = sr
		if err := speaker.Init(sr, bufferSize); err != nil {
			s.err = fmt.Errorf("failed to initialize speaker: %w", err)
		}
	})
	return s.err
}

func (s *speakerOutput) SampleRate() beep.SampleRate { return s.sr }

func (s *speakerOutput) Play(st ...beep.Streamer) { speaker.Play(st...) }

func (s *speakerOutput) Lock() { speaker.Lock() }

func (s *speakerOutput) Unlock() { speaker.Unlock() }
