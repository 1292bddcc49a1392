// Package mention provides regex-based detection and rewriting of embedded
// mention tokens. A mention is @{itemId} inside rich-text note content and
// acts as a soft foreign key the store does not enforce.
package mention

import "regexp"

// Token represents a detected mention
type Token struct {
	Start  int
	End    int
	ItemID string
}

// Scanner holds the compiled mention regex
type Scanner struct {
	mentionRe *regexp.Regexp
}

// NewScanner creates a scanner with the mention pattern compiled
func NewScanner() *Scanner {
	return &Scanner{
		// @{itemId}
		mentionRe: regexp.MustCompile(`@\{([^{}]+)\}`),
	}
}

// Extract finds all mention tokens in content, in order of appearance.
func (s *Scanner) Extract(content string) []Token {
	raw := s.mentionRe.FindAllStringSubmatchIndex(content, -1)
	var out []Token
	for _, m := range raw {
		out = append(out, Token{
			Start:  m[0],
			End:    m[1],
			ItemID: content[m[2]:m[3]],
		})
	}
	return out
}

// Rewrite replaces every mention token via the id mapping. A token whose
// target id has no mapping entry is stripped entirely, never left dangling.
func (s *Scanner) Rewrite(content string, mapping map[string]string) string {
	return s.mentionRe.ReplaceAllStringFunc(content, func(tok string) string {
		// Inner id: drop the leading @{ and trailing }
		id := tok[2 : len(tok)-1]
		if newID, ok := mapping[id]; ok {
			return "@{" + newID + "}"
		}
		return ""
	})
}

// Strip removes every mention token from content.
func (s *Scanner) Strip(content string) string {
	return s.mentionRe.ReplaceAllString(content, "")
}
