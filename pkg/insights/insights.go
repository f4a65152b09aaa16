// Package insights holds the canned analytic questions behind the
// non-chat views. Each one is answered through the normal answer loop.
package insights

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind names an insight.
type Kind string

const (
	KindSalesSummary    Kind = "summary"
	KindTopLeads        Kind = "leads"
	KindQualification   Kind = "qualification"
	KindRecommendations Kind = "recommendations"
	KindRefresh         Kind = "refresh"
)

var (
	ErrUnknownKind = errors.New("unknown insight")

	// ErrMissingCustomer is returned when recommendations name no customer.
	ErrMissingCustomer = errors.New("recommendations need a customer name or id")
)

var queries = map[Kind]string{
	KindSalesSummary:    "Provide a summary of our sales performance and key metrics.",
	KindTopLeads:        "List our top 5 leads with their scores and provide a brief qualification strategy for each.",
	KindQualification:   "Create a detailed lead qualification plan for our sales team.",
	KindRecommendations: "Provide product recommendations for customer: %s",
	KindRefresh:         "Update the knowledge base with the latest sales strategies and market trends.",
}

// Kinds lists every insight, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(queries))
	for k := range queries {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ParseKind validates a user supplied insight name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := queries[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Query returns the question for kind. customer is only used by
// KindRecommendations.
func Query(kind Kind, customer string) (string, error) {
	q, ok := queries[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if kind != KindRecommendations {
		return q, nil
	}

	customer = strings.TrimSpace(customer)
	if customer == "" {
		return "", ErrMissingCustomer
	}
	return fmt.Sprintf(q, customer), nil
}
