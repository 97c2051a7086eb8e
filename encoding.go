package pgexec

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8Decoder decodes UTF-8, replacing every ill-formed sequence with
// U+FFFD instead of failing — used both to validate a text ParameterValue
// at set-time and to sanity-check ParameterStatus payload strings before
// the session guard (§4.5) inspects them.
var utf8Decoder = unicode.UTF8.NewDecoder()

// validUTF8 reports whether b is well-formed UTF-8: the decoder leaves
// valid input byte-for-byte unchanged, so any difference means it had to
// replace an ill-formed sequence.
func validUTF8(b []byte) bool {
	out, _, err := transform.Bytes(utf8Decoder, b)
	return err == nil && bytes.Equal(out, b)
}
