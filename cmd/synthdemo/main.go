// Command synthdemo plays a short arpeggio through the synthesizer
// engine and can record the take to a WAV file.
//
// Usage:
//
//	synthdemo [flags]
//
// Examples:
//
//	synthdemo
//	synthdemo -preset "Fat Bass" -bpm 100
//	synthdemo -preset "Cosmic Bell" -wav take.wav
//	synthdemo -list
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-synth/engine"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/record"
)

// engineSource adapts the engine callback to oto's io.Reader pull
// model. Read runs on the audio thread and renders whole engine
// buffers, carrying any remainder into the next call.
type engineSource struct {
	eng     *engine.Engine
	frame   []float64
	scratch []byte
	pending []byte
}

func newEngineSource(eng *engine.Engine) *engineSource {
	n := eng.Configuration().BufferSize
	return &engineSource{
		eng:     eng,
		frame:   make([]float64, n),
		scratch: make([]byte, n*4),
	}
}

func (s *engineSource) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.eng.Process(s.frame)
			for i, v := range s.frame {
				binary.LittleEndian.PutUint32(s.scratch[i*4:], math.Float32bits(float32(v)))
			}
			s.pending = s.scratch
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func main() {
	rate := flag.Int("rate", engine.DefaultSampleRate, "sample rate in Hz (22050, 44100, 48000, 96000)")
	buffer := flag.Int("buffer", engine.DefaultBufferSize, "engine buffer size in samples")
	presetName := flag.String("preset", "Bright Lead", "factory preset name or preset file path")
	bpm := flag.Float64("bpm", 120, "arpeggio tempo in beats per minute")
	bars := flag.Int("bars", 2, "number of arpeggio bars to play")
	metronome := flag.Bool("metronome", false, "mix in the metronome click")
	wavPath := flag.String("wav", "", "write the recorded take to this WAV file")
	list := flag.Bool("list", false, "list factory presets and exit")
	flag.Parse()

	if *list {
		for _, name := range preset.FactoryNames() {
			fmt.Println(name)
		}
		return
	}

	if err := run(*rate, *buffer, *presetName, *bpm, *bars, *metronome, *wavPath); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(rate, buffer int, presetName string, bpm float64, bars int, metronome bool, wavPath string) error {
	cfg := engine.DefaultConfig()
	cfg.SampleRate = rate
	cfg.BufferSize = buffer

	rec, err := record.New(rate, record.WithMaxDuration(120))
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, engine.WithCapture(rec))
	if err != nil {
		return err
	}

	patch, err := preset.Load(presetName)
	if err != nil {
		return err
	}
	preset.Apply(patch, eng)
	log.Printf("preset %q at %d Hz, %.1f ms latency", patch.Name, rate, cfg.LatencyMs())

	eng.SetParameterBool("delay_enabled", true)
	eng.SetParameter("delay_time", 60000/bpm*0.75)
	eng.SetParameter("delay_wet", 0.25)
	if metronome {
		eng.SetParameter("metronome_bpm", bpm)
		eng.SetParameterBool("metronome_enabled", true)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(newEngineSource(eng))
	defer player.Close()

	rec.Start()
	player.Play()

	playArpeggio(eng, bpm, bars)

	eng.AllNotesOff()
	time.Sleep(1500 * time.Millisecond) // release and delay tails
	rec.Stop()
	player.Pause()

	if n := eng.Underruns(); n > 0 {
		log.Printf("%d faulted buffers", n)
	}

	if wavPath == "" {
		return nil
	}
	exportCfg := record.DefaultExportConfig()
	exportCfg.SampleRate = rate
	exportCfg.Normalize = true
	if err := record.ExportWAV(wavPath, rec.Audio(), exportCfg); err != nil {
		return err
	}
	info := rec.GetInfo()
	log.Printf("wrote %s (%.2f s, peak %.2f)", wavPath, info.DurationSeconds, info.PeakLevel)
	return nil
}

// playArpeggio cycles a C major pattern, one note per eighth at the
// given tempo.
func playArpeggio(eng *engine.Engine, bpm float64, bars int) {
	pattern := []int{60, 64, 67, 72, 67, 64}
	step := time.Duration(60000/bpm/2) * time.Millisecond

	for bar := 0; bar < bars; bar++ {
		root := 0
		if bar%2 == 1 {
			root = -3 // A minor every other bar
		}
		for _, note := range pattern {
			eng.NoteOn(note+root, 100)
			time.Sleep(step * 3 / 4)
			eng.NoteOff(note + root)
			time.Sleep(step / 4)
		}
	}
}
