// ABOUTME: Entry point for the SoundDrift player
// ABOUTME: Streams PCM audio from an Android phone to the local audio output
package main

import (
	"os"

	"github.com/SoundDrift/sounddrift-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
