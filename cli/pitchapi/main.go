package main

import (
	"os"

	servecmder "github.com/papercomputeco/pitch/cmd/pitch/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "pitchapi"
	cmd.SilenceUsage = true
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .pitch directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
