package twin

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	perRune   = 60 * time.Millisecond
	minSpeech = 500 * time.Millisecond
	maxSpeech = 8 * time.Second
)

// speechDuration approximates how long text takes to read aloud.
func speechDuration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * perRune
	if d < minSpeech {
		d = minSpeech
	}
	if d > maxSpeech {
		d = maxSpeech
	}
	return d
}

// containerMagic maps the upload suffixes the voice endpoint decodes to the
// leading bytes of that container.
var containerMagic = map[string][][]byte{
	".wav":  {[]byte("RIFF")},
	".webm": {{0x1A, 0x45, 0xDF, 0xA3}},
	".ogg":  {[]byte("OggS")},
	".mp3":  {[]byte("ID3"), {0xFF}},
}

// checkContainer rejects audio whose bytes do not match the container its
// filename claims, which a real decoder would fail on.
func checkContainer(filename string, data []byte) error {
	ext := strings.ToLower(path.Ext(filename))
	magic, ok := containerMagic[ext]
	if !ok {
		return fmt.Errorf("unsupported audio format %q", ext)
	}
	for _, m := range magic {
		if bytes.HasPrefix(data, m) {
			return nil
		}
	}
	return fmt.Errorf("%s is not a valid %s file", filename, strings.TrimPrefix(ext, "."))
}
