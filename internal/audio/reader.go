package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into mono samples normalized to [-1, 1]
// and returns them with the sample rate. Stereo input is downmixed by
// averaging channels.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file: %s", path)
	}

	var buf *audio.IntBuffer
	buf, err = decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("WAV file contains no samples")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := buf.Format.NumChannels
	switch channels {
	case 1:
		out := make([]float64, len(buf.Data))
		for i, s := range buf.Data {
			out[i] = float64(s) / scale
		}
		return out, buf.Format.SampleRate, nil
	case 2:
		frames := len(buf.Data) / 2
		out := make([]float64, frames)
		for i := 0; i < frames; i++ {
			l := float64(buf.Data[2*i]) / scale
			r := float64(buf.Data[2*i+1]) / scale
			out[i] = (l + r) * 0.5
		}
		return out, buf.Format.SampleRate, nil
	default:
		return nil, 0, fmt.Errorf("unsupported channel count %d: only mono/stereo supported", channels)
	}
}
