package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"

	"cepstra/internal/services"
)

// Signal holds one decoded channel.
type Signal struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Load decodes channel of the file at path.
func Load(path string, channel int) (Signal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Signal{}, services.Wrap(services.ErrInputNotFound, "audio", "load", "empty path", nil)
	}
	if channel < 0 {
		return Signal{}, services.Wrap(services.ErrExtraction, "audio", "load", fmt.Sprintf("invalid channel %d", channel), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Signal{}, services.Wrap(services.ErrInputNotFound, "audio", "load", path, err)
		}
		return Signal{}, services.Wrap(services.ErrExtraction, "audio", "stat", path, err)
	}
	if info.IsDir() {
		return Signal{}, services.Wrap(services.ErrInputNotFound, "audio", "load", path+" is a directory", nil)
	}

	var sig Signal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		sig, err = loadFLAC(path, channel)
	default:
		sig, err = loadWAV(path, channel)
	}
	if err != nil {
		return Signal{}, services.Wrap(services.ErrExtraction, "audio", "decode", path, err)
	}
	return sig, nil
}

func loadWAV(path string, channel int) (Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer file.Close()

	stream, format, err := wav.Decode(file)
	if err != nil {
		return Signal{}, err
	}
	defer stream.Close()

	// beep exposes at most two channels; mono input is duplicated into both.
	if channel >= format.NumChannels || channel > 1 {
		return Signal{}, fmt.Errorf("channel %d out of range for %d-channel audio", channel, format.NumChannels)
	}

	samples := make([]float64, 0, max(stream.Len(), 0))
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, buf[i][channel])
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return Signal{}, err
	}

	return Signal{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

func loadFLAC(path string, channel int) (Signal, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channel >= channels {
		return Signal{}, fmt.Errorf("channel %d out of range for %d-channel audio", channel, channels)
	}
	scale := math.Exp2(float64(stream.Info.BitsPerSample) - 1)

	samples := make([]float64, 0, stream.Info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Signal{}, err
		}
		for _, v := range frame.Subframes[channel].Samples {
			samples = append(samples, float64(v)/scale)
		}
	}

	return Signal{
		Samples:    samples,
		SampleRate: int(stream.Info.SampleRate),
		Channels:   channels,
	}, nil
}
