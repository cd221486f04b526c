// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/kocinski15/son1config/pkg/config"
	"go.bug.st/serial"
)

func TestSerialMode(t *testing.T) {
	tests := []struct {
		name       string
		sc         config.SerialConfig
		wantParity serial.Parity
		wantStop   serial.StopBits
		wantErr    bool
	}{
		{name: "8E1", sc: config.SerialConfig{Baud: 9600, Parity: "even", DataBits: 8, StopBits: 1}, wantParity: serial.EvenParity, wantStop: serial.OneStopBit},
		{name: "8N2", sc: config.SerialConfig{Baud: 19200, Parity: "none", DataBits: 8, StopBits: 2}, wantParity: serial.NoParity, wantStop: serial.TwoStopBits},
		{name: "7O1 upper case", sc: config.SerialConfig{Baud: 4800, Parity: "ODD", DataBits: 7, StopBits: 1}, wantParity: serial.OddParity, wantStop: serial.OneStopBit},
		{name: "mark", sc: config.SerialConfig{Baud: 9600, Parity: "mark", DataBits: 8, StopBits: 1}, wantParity: serial.MarkParity, wantStop: serial.OneStopBit},
		{name: "space", sc: config.SerialConfig{Baud: 9600, Parity: "space", DataBits: 8, StopBits: 1}, wantParity: serial.SpaceParity, wantStop: serial.OneStopBit},
		{name: "bad parity", sc: config.SerialConfig{Baud: 9600, Parity: "both", DataBits: 8, StopBits: 1}, wantErr: true},
		{name: "bad stop bits", sc: config.SerialConfig{Baud: 9600, Parity: "even", DataBits: 8, StopBits: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := serialMode(tt.sc)
			if tt.wantErr {
				if err == nil {
					t.Fatal("serialMode() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("serialMode() failed: %v", err)
			}
			if mode.BaudRate != tt.sc.Baud || mode.DataBits != tt.sc.DataBits {
				t.Errorf("mode = %+v", mode)
			}
			if mode.Parity != tt.wantParity || mode.StopBits != tt.wantStop {
				t.Errorf("parity/stop = %v/%v, want %v/%v", mode.Parity, mode.StopBits, tt.wantParity, tt.wantStop)
			}
		})
	}
}

func TestLineSettings(t *testing.T) {
	if got := lineSettings(config.SerialConfig{Parity: "even", DataBits: 8, StopBits: 1}); got != "8E1" {
		t.Errorf("lineSettings() = %q, want 8E1", got)
	}
}

func TestNewDialer_NoTransport(t *testing.T) {
	if _, err := NewDialer(config.Default()); err == nil {
		t.Error("NewDialer() without port or URL succeeded")
	}
}

func TestNewDialer_BadURLScheme(t *testing.T) {
	c := config.Default()
	c.WebSocket.URL = "http://bridge.local/serial"
	dial, err := NewDialer(c)
	if err != nil {
		t.Fatalf("NewDialer() failed: %v", err)
	}
	if _, _, err := dial(); err == nil {
		t.Error("dial() with http scheme succeeded")
	}
}
