package results

import "strings"

// Classifier recognizes error markers embedded in written caption outputs.
// The same instance must be used when checking a fresh result and when
// scanning existing outputs; diverging phrase sets would make "processed"
// and "error-free" inconsistent.
type Classifier struct {
	markers []string
}

// NewClassifier builds a classifier from the configured marker set.
func NewClassifier(markers []string) *Classifier {
	return &Classifier{markers: append([]string(nil), markers...)}
}

// HasError reports whether the output text contains any known error marker,
// case-insensitively.
func (c *Classifier) HasError(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range c.markers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
