// Package eventstreamutils builds publishers from configuration.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/pitch/pkg/eventstream"
	"github.com/papercomputeco/pitch/pkg/eventstream/kafka"
	"github.com/papercomputeco/pitch/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
