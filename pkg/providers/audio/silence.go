package audio

import "time"

const (
	// MPEG-1 Layer III, 128 kbit/s, 44.1 kHz, mono, no CRC, no padding.
	silentHeader = "\xFF\xFB\x90\xC4"
	frameSize    = 417
	// FrameLength is the play time of one frame.
	FrameLength = 1152 * time.Second / 44100
)

// Silence returns an MP3 stream of silent frames lasting about d, at least
// one frame.
func Silence(d time.Duration) []byte {
	frames := int(d / FrameLength)
	if frames < 1 {
		frames = 1
	}
	out := make([]byte, frames*frameSize)
	for i := 0; i < frames; i++ {
		copy(out[i*frameSize:], silentHeader)
	}
	return out
}
