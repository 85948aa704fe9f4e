package firewall

import (
	"fmt"

	"github.com/jaytaylor/html2text"
)

// ExtractText converts page HTML to plain text ready for Sanitize. Link
// targets are dropped so only visible text leaves the page.
func (f *Firewall) ExtractText(html string) (string, error) {
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return text, nil
}
