// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// son1config - addressed serial bus command tool
//
// Sends catalog commands to devices sharing a half-duplex serial bus and
// shows their replies.

package main

import (
	"os"

	"github.com/kocinski15/son1config/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
