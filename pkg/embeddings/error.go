package embeddings

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmbedding is the family every embedding failure wraps.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyInput is returned for empty or whitespace-only text.
	ErrEmptyInput = fmt.Errorf("%w: empty input", ErrEmbedding)

	// ErrInputTooLong is returned when text exceeds the configured limit.
	ErrInputTooLong = fmt.Errorf("%w: input too long", ErrEmbedding)
)

// ValidateInput rejects text an embedding model cannot accept. maxChars <= 0
// disables the length check.
func ValidateInput(text string, maxChars int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if maxChars > 0 {
		if n := utf8.RuneCountInString(text); n > maxChars {
			return fmt.Errorf("%w: %d characters exceeds %d", ErrInputTooLong, n, maxChars)
		}
	}
	return nil
}
