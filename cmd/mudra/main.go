// Command mudra recognizes hand gestures from landmark frames, either posted
// to its HTTP API or detected from a local camera.
package main

import (
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
