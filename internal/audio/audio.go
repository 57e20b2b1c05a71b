package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = beep.SampleRate(44100)
	BufferSize = 512

	// Volume keeps a full-scale sine well clear of clipping when two tones
	// overlap in the mixer.
	Volume = 0.3
)

// Sine is an endless sine oscillator with a short attack and release ramp to
// avoid clicks at tone boundaries.
type Sine struct {
	sr    beep.SampleRate
	freq  float64
	total int
	pos   int
}

func NewSine(sr beep.SampleRate, freq float64, total int) *Sine {
	return &Sine{sr: sr, freq: freq, total: total}
}

func (s *Sine) Stream(samples [][2]float64) (n int, ok bool) {
	ramp := s.sr.N(5 * time.Millisecond)
	for i := range samples {
		t := float64(s.pos) / float64(s.sr)
		v := math.Sin(2*math.Pi*s.freq*t) * Volume

		env := 1.0
		if ramp > 0 {
			if s.pos < ramp {
				env = float64(s.pos) / float64(ramp)
			}
			if s.total > 0 && s.total-s.pos < ramp {
				env = math.Min(env, float64(s.total-s.pos)/float64(ramp))
			}
		}
		v *= env

		samples[i][0] = v
		samples[i][1] = v
		s.pos++
	}
	return len(samples), true
}

func (s *Sine) Err() error { return nil }

// Tone returns a finite streamer playing freq for d.
func Tone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	n := sr.N(d)
	return beep.Take(n, NewSine(sr, freq, n))
}

// Player mixes fire-and-forget tones into a portaudio output stream.
type Player struct {
	Stream *portaudio.Stream

	mu     sync.Mutex
	mixer  *beep.Mixer
	buf    [][2]float64
	Active bool
}

func NewPlayer() *Player {
	return &Player{
		mixer: &beep.Mixer{},
		buf:   make([][2]float64, BufferSize),
	}
}

func (p *Player) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: init: %w", err)
	}

	// Output only; duplex streams fail on hosts whose devices differ.
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(SampleRate), BufferSize, p.Process)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}

	p.Stream = stream
	p.Active = true
	return nil
}

func (p *Player) Stop() {
	if p.Stream != nil {
		p.Stream.Stop()
		p.Stream.Close()
		p.Stream = nil
	}
	if p.Active {
		portaudio.Terminate()
	}
	p.Active = false
}

// Beep queues a tone and returns immediately. Tones overlap rather than
// queue behind one another.
func (p *Player) Beep(hz float64, d time.Duration) {
	if hz <= 0 || d <= 0 {
		return
	}
	p.mu.Lock()
	p.mixer.Add(Tone(SampleRate, hz, d))
	p.mu.Unlock()
}

// Pending is the number of tones still sounding.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mixer.Len()
}

// Process is the portaudio callback. It fills both channels from the mixer,
// which yields silence once every tone has finished.
func (p *Player) Process(in []float32, out [][]float32) {
	n := len(out[0])
	if n > len(p.buf) {
		p.buf = make([][2]float64, n)
	}
	buf := p.buf[:n]

	p.mu.Lock()
	p.mixer.Stream(buf)
	p.mu.Unlock()

	for i := range buf {
		out[0][i] = float32(buf[i][0])
		out[1][i] = float32(buf[i][1])
	}
}
