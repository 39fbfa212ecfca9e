package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacBlockSize is the number of samples per channel in each FLAC frame.
const flacBlockSize = 4096

// Tone describes a synthetic clip: a sine burst followed by digital silence.
type Tone struct {
	SampleRate  int
	Seconds     float64
	ToneSeconds float64
	Frequency   float64
	Amplitude   float64
	// Channels is 1 or 2. On stereo clips only the left channel carries the
	// tone; the right channel is silent.
	Channels int
}

// DefaultTone is one second at 16 kHz: half a second of 440 Hz followed by
// half a second of silence.
func DefaultTone() Tone {
	return Tone{
		SampleRate:  16000,
		Seconds:     1,
		ToneSeconds: 0.5,
		Frequency:   440,
		Amplitude:   0.5,
		Channels:    1,
	}
}

// Samples returns the left-channel samples WriteWAV encodes for tone.
func (tone Tone) Samples() []float64 {
	total := int(math.Round(tone.Seconds * float64(tone.SampleRate)))
	voiced := int(math.Round(tone.ToneSeconds * float64(tone.SampleRate)))
	out := make([]float64, total)
	for i := 0; i < voiced && i < total; i++ {
		out[i] = tone.Amplitude * math.Sin(2*math.Pi*tone.Frequency*float64(i)/float64(tone.SampleRate))
	}
	return out
}

// WriteWAV encodes tone as 16-bit PCM at path, creating parent directories.
func WriteWAV(t testing.TB, path string, tone Tone) {
	t.Helper()

	if tone.Channels == 0 {
		tone.Channels = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	samples := tone.Samples()
	pos := 0
	streamer := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(samples) {
			left := samples[pos]
			right := left
			if tone.Channels == 2 {
				right = 0
			}
			buf[n] = [2]float64{left, right}
			n++
			pos++
		}
		return n, true
	})

	format := beep.Format{
		SampleRate:  beep.SampleRate(tone.SampleRate),
		NumChannels: tone.Channels,
		Precision:   2,
	}
	if err := wav.Encode(f, streamer, format); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteFLAC encodes tone as 16-bit verbatim FLAC at path, creating parent
// directories. Channel layout matches WriteWAV.
func WriteFLAC(t testing.TB, path string, tone Tone) {
	t.Helper()

	if tone.Channels == 0 {
		tone.Channels = 1
	}
	channels := frame.ChannelsMono
	if tone.Channels == 2 {
		channels = frame.ChannelsLR
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  65535,
		SampleRate:    uint32(tone.SampleRate),
		NChannels:     uint8(tone.Channels),
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		_ = f.Close()
		t.Fatalf("flac encoder for %s: %v", path, err)
	}

	samples := tone.Samples()
	for start := 0; start < len(samples); start += flacBlockSize {
		end := min(start+flacBlockSize, len(samples))
		n := end - start
		subframes := make([]*frame.Subframe, tone.Channels)
		for ch := range subframes {
			sub := &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   make([]int32, n),
				NSamples:  n,
			}
			if ch == 0 {
				for i := range n {
					sub.Samples[i] = int32(math.Round(samples[start+i] * 32767))
				}
			}
			subframes[ch] = sub
		}
		fr := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(n),
				SampleRate:    uint32(tone.SampleRate),
				Channels:      channels,
				BitsPerSample: 16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(fr); err != nil {
			_ = enc.Close()
			t.Fatalf("encode %s: %v", path, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

// WriteFile writes raw bytes to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
