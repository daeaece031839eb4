// Package widgets holds stateless text renderers for the call screen. Each
// takes an animation frame counter instead of keeping its own timer.
package widgets

import (
	"fmt"
	"strings"
	"time"
)

var waveHeights = []int{1, 2, 3, 4, 5, 4, 3, 2, 1, 2, 3, 4}

var bars = []rune(" ▁▂▃▄▅▆▇█")

// SoundWave renders the speaking bars. Each bar breathes between 40% and
// 140% of its base height, offset by its position.
func SoundWave(frame int) string {
	var b strings.Builder
	for i, h := range waveHeights {
		phase := (frame + i) % 8
		if phase > 4 {
			phase = 8 - phase
		}
		// phase 0..4 maps scale 0.4..1.4 in tenths
		scale := 4 + phase*10/4
		level := h * scale * (len(bars) - 1) / 70
		if level < 1 {
			level = 1
		}
		if level > len(bars)-1 {
			level = len(bars) - 1
		}
		b.WriteRune(bars[level])
	}
	return b.String()
}

var pulseRings = []string{"(●)", "(( ● ))", "((( ● )))", "(( ● ))"}

// MicPulse renders the listening indicator.
func MicPulse(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return pulseRings[frame%len(pulseRings)]
}

// Typewriter appends a block cursor that blinks while text is still being
// revealed. Once done the cursor is dropped.
func Typewriter(text string, done bool, frame int) string {
	if done {
		return text
	}
	if frame%2 == 0 {
		return text + "▌"
	}
	return text + " "
}

// Clock formats an elapsed call duration as mm:ss. Minutes keep counting
// past 59.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Progress renders one segment per question: answered, current, pending.
func Progress(total, current int) string {
	var b strings.Builder
	for i := 0; i < total; i++ {
		switch {
		case i < current:
			b.WriteRune('━')
		case i == current:
			b.WriteRune('╸')
		default:
			b.WriteRune('─')
		}
	}
	return b.String()
}

// Dots is the bouncing ring indicator.
func Dots(frame int) string {
	out := []rune("· · ·")
	out[(frame%3)*2] = '•'
	return string(out)
}

// Spinner cycles a braille spinner.
func Spinner(frame int) string {
	frames := []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")
	if frame < 0 {
		frame = -frame
	}
	return string(frames[frame%len(frames)])
}

// FormatPhone shows the dialed digits with the +91 prefix.
func FormatPhone(digits string) string {
	if digits == "" {
		return "+91 __________"
	}
	return "+91 " + digits + strings.Repeat("_", max(0, 10-len(digits)))
}
