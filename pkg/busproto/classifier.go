// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Rendered is an inbound chunk turned into something displayable
type Rendered struct {
	Type ResponseType
	Text string // hex dump for binary responses, decoded text for text responses
	Raw  []byte
}

// String returns the rendering with its type prefix, as shown in history
func (r Rendered) String() string {
	switch r.Type {
	case ResponseBinary:
		return "Binary: " + r.Text
	case ResponseText:
		return "Text: " + r.Text
	default:
		return ""
	}
}

// Classify renders data according to responseType.
// Binary gives an uppercase space-separated hex dump, text gives best-effort
// UTF-8 with U+FFFD for malformed sequences. ResponseNone renders nothing and
// returns ok=false; callers should not record it.
func Classify(data []byte, responseType ResponseType) (r Rendered, ok bool) {
	raw := make([]byte, len(data))
	copy(raw, data)

	switch responseType {
	case ResponseBinary:
		return Rendered{Type: ResponseBinary, Text: FormatHexDump(data), Raw: raw}, true
	case ResponseText:
		return Rendered{Type: ResponseText, Text: DecodeText(data), Raw: raw}, true
	default:
		return Rendered{}, false
	}
}

// FormatHexDump formats bytes as "8B 01 FF"
func FormatHexDump(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 3)
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// DecodeText decodes UTF-8, replacing each maximal ill-formed subsequence
// with U+FFFD. It never fails.
func DecodeText(data []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(out)
}

// TextStream decodes a byte stream as UTF-8 across chunk boundaries.
// A multi-byte sequence split between two chunks is held back until the
// rest arrives instead of being replaced.
type TextStream struct {
	dec     *encoding.Decoder
	pending []byte
}

// NewTextStream returns a stream decoder with no buffered input
func NewTextStream() *TextStream {
	return &TextStream{dec: unicode.UTF8.NewDecoder()}
}

// Decode consumes chunk and returns the text that is complete so far
func (t *TextStream) Decode(chunk []byte) string {
	return t.transform(chunk, false)
}

// Flush returns the held-back bytes, replacing an incomplete sequence with U+FFFD
func (t *TextStream) Flush() string {
	return t.transform(nil, true)
}

// Pending returns the number of bytes held back
func (t *TextStream) Pending() int {
	return len(t.pending)
}

func (t *TextStream) transform(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(t.pending)+len(chunk))
	src = append(src, t.pending...)
	src = append(src, chunk...)
	if len(src) == 0 {
		return ""
	}

	dst := make([]byte, len(src)*3+utf8.UTFMax)
	nDst, nSrc, _ := t.dec.Transform(dst, src, atEOF)

	t.pending = append([]byte(nil), src[nSrc:]...)
	if atEOF {
		t.pending = nil
		t.dec.Reset()
	}
	return string(dst[:nDst])
}
