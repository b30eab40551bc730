package importer

import (
	"log/slog"
	"unicode/utf8"
)

// Some feeds carry control characters XML does not allow, which makes the
// whole page fail to parse. Drop them rune by rune.
func removeDisallowedCodepoints(bs []byte, l *slog.Logger) []byte {
	ret := make([]byte, 0, len(bs))
	buf := bs
	removed := 0

	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			l.Warn("Going to fail XML parsing because the bytes do not represent valid UTF8")
			return bs
		}

		if isInCharacterRange(r) {
			ret = append(ret, buf[:size]...)
		} else {
			removed += 1
		}

		buf = buf[size:]
	}

	if removed > 0 {
		l.Warn("Removed invalid runes from XML", slog.Int("count", removed))
	}

	return ret
}

// Char production of XML 1.0, section 2.2; same check encoding/xml does.
func isInCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
