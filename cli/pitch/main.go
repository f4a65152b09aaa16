package main

import (
	"os"

	pitchcmder "github.com/papercomputeco/pitch/cmd/pitch"
)

func main() {
	cmd := pitchcmder.NewPitchCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
