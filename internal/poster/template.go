// Package poster loads vector templates, substitutes placeholder tokens and
// converts the filled document into the requested output formats.
package poster

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	apperrors "postergen/internal/common/errors"
)

// tokenPattern matches placeholder tokens of the form {{name}}.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Template is a named vector document containing zero or more placeholder
// tokens.
type Template struct {
	Key     string
	Path    string
	Content string
	Tokens  []string
}

// Load reads and parse-checks one template. A file that is not a well-formed
// vector document fails with RENDER_FAILED.
func Load(key, path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewRenderFailedError(key, err)
	}
	if err := checkVector(data); err != nil {
		return nil, apperrors.NewRenderFailedError(key, err)
	}
	return &Template{
		Key:     key,
		Path:    path,
		Content: string(data),
		Tokens:  extractTokens(data),
	}, nil
}

// Render substitutes every token whose name is a key in the placeholder
// table. Tokens with no matching key stay literally in the output.
// Substitution is textual, order-independent and not nested.
func (t *Template) Render(table map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(t.Content, func(match string) string {
		name := strings.ToLower(tokenPattern.FindStringSubmatch(match)[1])
		if val, ok := table[name]; ok {
			return val
		}
		return match
	})
}

// checkVector verifies the document is well-formed XML with an svg root.
func checkVector(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fmt.Errorf("no root element found")
		}
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok {
			if !strings.EqualFold(start.Name.Local, "svg") {
				return fmt.Errorf("root element is %q, want svg", start.Name.Local)
			}
			return nil
		}
	}
}

// extractTokens returns the distinct token names in document order.
func extractTokens(data []byte) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, m := range tokenPattern.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			tokens = append(tokens, name)
		}
	}
	return tokens
}
