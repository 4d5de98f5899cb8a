// Package clipboard extracts a downloadable URL from clipboard text so the
// add command can take its URL from the clipboard (`chunkdl add --clipboard`)
// instead of an argument. Grounded on
// the sibling repo's internal/clipboard/validator.go.
package clipboard

import (
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// Validator checks whether a string of text is a single usable download URL.
type Validator struct {
	allowedSchemes map[string]bool
}

// NewValidator returns a Validator accepting http(s) URLs only.
func NewValidator() *Validator {
	return &Validator{
		allowedSchemes: map[string]bool{"http": true, "https": true},
	}
}

// ExtractURL returns a cleaned URL if text is a single valid http(s) URL,
// or "" otherwise.
func (v *Validator) ExtractURL(text string) string {
	text = strings.TrimSpace(text)

	if len(text) == 0 || len(text) > 2048 || strings.ContainsAny(text, "\n\r") {
		return ""
	}
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		return ""
	}

	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" || !v.allowedSchemes[parsed.Scheme] {
		return ""
	}
	return parsed.String()
}

// ReadURL reads the system clipboard and returns a valid URL from it, or ""
// if the clipboard holds no usable URL (including when the platform has no
// clipboard backend available, e.g. a headless Linux box with no xclip/xsel).
func ReadURL() string {
	text, err := clipboard.ReadAll()
	if err != nil {
		return ""
	}
	return NewValidator().ExtractURL(text)
}
