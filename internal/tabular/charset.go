package tabular

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/pifcsv/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Charsets lists the accepted Options.Charset values.
var Charsets = []string{"auto", "utf-8", "latin-1", "mac-roman", "windows-1252"}

// decoderFor resolves a charset name. "auto" keeps UTF-8 when the sample is
// valid UTF-8 (or starts with a BOM) and falls back to Latin-1 otherwise.
func decoderFor(charset string, sample []byte) (transform.Transformer, error) {
	switch core.Normalize(charset) {
	case "", "auto":
		if bytes.HasPrefix(sample, utf8BOM) || utf8.Valid(trimPartialRune(sample)) {
			return utf8Decoder(), nil
		}
		return charmap.ISO8859_1.NewDecoder(), nil
	case "utf8":
		return utf8Decoder(), nil
	case "latin1", "iso88591":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "macroman", "macintosh", "mac":
		return charmap.Macintosh.NewDecoder(), nil
	case "windows1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, &core.ConversionError{
		Kind:    core.KindFile,
		Code:    "FILE007",
		Message: fmt.Sprintf("unsupported charset %q", charset),
		Action:  fmt.Sprintf("Use one of %v", Charsets),
	}
}

// utf8Decoder strips a leading BOM and replaces invalid bytes with U+FFFD.
func utf8Decoder() transform.Transformer {
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

func decode(r io.Reader, t transform.Transformer) io.Reader {
	return transform.NewReader(r, t)
}

// trimPartialRune drops a multi-byte sequence cut off at the end of the
// sniff window so it is not mistaken for invalid UTF-8.
func trimPartialRune(b []byte) []byte {
	i := len(b) - 1
	for i >= 0 && i > len(b)-utf8.UTFMax && !utf8.RuneStart(b[i]) {
		i--
	}
	if i >= 0 && !utf8.FullRune(b[i:]) {
		return b[:i]
	}
	return b
}
