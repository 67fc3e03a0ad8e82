// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Safewatch.
//
// Usage:
//
//	go run . [flags]
//	./safewatch serve
//
// Without a subcommand the terminal dashboard starts. See --help for options.
package main

import (
	"log"
	"os"

	"github.com/smartsafe/safewatch/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("safewatch: %v", err)
		os.Exit(1)
	}
}
