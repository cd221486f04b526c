// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/kocinski15/son1config/pkg/busproto"
)

func TestRenderListenChunk_Binary(t *testing.T) {
	c := busproto.Chunk{Data: []byte{0x8B, 0x01}, Received: time.Now()}
	got := renderListenChunk(c, busproto.ResponseBinary, busproto.NewTextStream())
	if !strings.HasSuffix(got, "Binary: 8B 01\n") {
		t.Errorf("renderListenChunk() = %q", got)
	}
}

func TestRenderListenChunk_TextSplit(t *testing.T) {
	text := busproto.NewTextStream()
	degree := []byte("°") // C2 B0

	first := renderListenChunk(busproto.Chunk{Data: append([]byte("20"), degree[0])}, busproto.ResponseText, text)
	if !strings.HasSuffix(first, "Text: 20\n") {
		t.Errorf("first chunk = %q", first)
	}

	held := renderListenChunk(busproto.Chunk{Data: []byte{}}, busproto.ResponseText, text)
	if held != "" {
		t.Errorf("empty chunk rendered %q", held)
	}

	second := renderListenChunk(busproto.Chunk{Data: append(degree[1:], 'C')}, busproto.ResponseText, text)
	if !strings.HasSuffix(second, "Text: °C\n") {
		t.Errorf("second chunk = %q", second)
	}
}
