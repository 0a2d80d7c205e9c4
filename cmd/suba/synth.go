package main

import (
	"fmt"
	"os"

	"github.com/jldailey/suba"
)

func cmdSynth(argv []string) {
	if len(argv) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: suba synth <expression>\n")
		os.Exit(1)
	}
	for _, root := range suba.Synth(argv[0]) {
		fmt.Println(root)
	}
}
