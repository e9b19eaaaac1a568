// Package seo derives display and social metadata from WordPress records.
package seo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

var (
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// Replacer scans once, left to right, so its own output is never re-read.
	namedRefs = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&nbsp;", " ",
	)
)

// DecodeEntities decodes hexadecimal and decimal character references, then the six
// named entities amp, lt, gt, quot, apos and nbsp (as a plain space). Each category is
// decoded in a single left-to-right pass, so "&amp;amp;" becomes "&amp;".
//
// Numeric references resolve to one UTF-16 code unit: the parsed value is rounded to a
// float64, then truncated modulo 0x10000, with infinities mapping to zero. Both numeric
// passes work on code units, so a surrogate pair may be split across the two forms.
// Halves left unpaired become U+FFFD.
func DecodeEntities(text string) string {
	if text == "" {
		return ""
	}
	units := utf16.Encode([]rune(text))
	units = replaceNumeric(units, true)
	units = replaceNumeric(units, false)
	return namedRefs.Replace(string(utf16.Decode(units)))
}

// StripTags removes every <...> span. Entities are left untouched.
func StripTags(html string) string {
	if html == "" {
		return ""
	}
	return tagRe.ReplaceAllString(html, "")
}

// replaceNumeric rewrites every "&#xHEX;" (hex) or "&#DEC;" reference in one pass.
func replaceNumeric(units []uint16, hex bool) []uint16 {
	out := make([]uint16, 0, len(units))
	for i := 0; i < len(units); {
		if unit, next, ok := numericRef(units, i, hex); ok {
			out = append(out, unit)
			i = next
			continue
		}
		out = append(out, units[i])
		i++
	}
	return out
}

func numericRef(units []uint16, i int, hex bool) (uint16, int, bool) {
	if units[i] != '&' || i+1 >= len(units) || units[i+1] != '#' {
		return 0, 0, false
	}
	j := i + 2
	if hex {
		if j >= len(units) || units[j] != 'x' {
			return 0, 0, false
		}
		j++
	}
	start := j
	for j < len(units) && isDigit(units[j], hex) {
		j++
	}
	if j == start || j >= len(units) || units[j] != ';' {
		return 0, 0, false
	}

	digits := make([]byte, 0, j-start)
	for _, u := range units[start:j] {
		digits = append(digits, byte(u))
	}
	return codeUnit(string(digits), hex), j + 1, true
}

// codeUnit converts a digit string the way a float64 parse followed by a
// uint16 truncation would.
func codeUnit(digits string, hex bool) uint16 {
	var (
		v   float64
		err error
	)
	if hex {
		v, err = strconv.ParseFloat("0x"+digits+"p0", 64)
	} else {
		v, err = strconv.ParseFloat(digits, 64)
	}
	if err != nil {
		// Out-of-range values parse to an infinity, which truncates to zero.
		return 0
	}
	return uint16(math.Mod(math.Trunc(v), 0x10000))
}

func isDigit(u uint16, hex bool) bool {
	switch {
	case u >= '0' && u <= '9':
		return true
	case hex && u >= 'a' && u <= 'f':
		return true
	case hex && u >= 'A' && u <= 'F':
		return true
	default:
		return false
	}
}
