// Package pitchcmder
package pitchcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/pitch/cmd/pitch/auth"
	chatcmder "github.com/papercomputeco/pitch/cmd/pitch/chat"
	configcmder "github.com/papercomputeco/pitch/cmd/pitch/config"
	historycmder "github.com/papercomputeco/pitch/cmd/pitch/history"
	ingestcmder "github.com/papercomputeco/pitch/cmd/pitch/ingest"
	initcmder "github.com/papercomputeco/pitch/cmd/pitch/init"
	insightcmder "github.com/papercomputeco/pitch/cmd/pitch/insight"
	notecmder "github.com/papercomputeco/pitch/cmd/pitch/note"
	searchcmder "github.com/papercomputeco/pitch/cmd/pitch/search"
	servecmder "github.com/papercomputeco/pitch/cmd/pitch/serve"
	versioncmder "github.com/papercomputeco/pitch/cmd/pitch/version"
)

const pitchLongDesc string = `pitch is a sales assistant that answers from your own sales records.

Get started:
  pitch init --preset ollama   Write a config for a local Ollama
  pitch serve                  Run the server
  pitch ingest sales.csv       Load records into the knowledge base
  pitch chat                   Ask questions`

const pitchShortDesc string = "pitch - RAG sales assistant"

func NewPitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pitch",
		Short:        pitchShortDesc,
		Long:         pitchLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .pitch directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(notecmder.NewNoteCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(insightcmder.NewInsightCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
