// internal/command/parser.go
package command

import "strings"

// DefaultMarker is the delimiter recognized around meta-commands.
const DefaultMarker = '*'

// Parser recognizes meta-commands: input entirely wrapped in a single
// matching pair of the marker character with a non-empty interior.
// Anything ambiguous is narrative, not a command, so ordinary dialogue
// containing the marker mid-sentence is never misclassified.
type Parser struct {
	marker byte
}

// NewParser returns a parser using the default marker.
func NewParser() *Parser {
	return &Parser{marker: DefaultMarker}
}

// NewParserWithMarker returns a parser using a custom marker character.
func NewParserWithMarker(marker byte) *Parser {
	return &Parser{marker: marker}
}

// Parse extracts the directive text from a meta-command. ok is false when
// the input is ordinary narrative: marker missing on either end, interior
// empty, or whitespace-only interior.
func (p *Parser) Parse(input string) (directive string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 3 {
		return "", false
	}
	if trimmed[0] != p.marker || trimmed[len(trimmed)-1] != p.marker {
		return "", false
	}
	interior := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if interior == "" {
		return "", false
	}
	return interior, true
}
