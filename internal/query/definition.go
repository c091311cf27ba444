package query

import (
	"encoding/json"
	"fmt"
	"os"
)

// Definition is an externally supplied term set for ServiceCustom, optionally
// paired with a JMESPath extraction applied to structured messages when the
// report is rendered.
type Definition struct {
	Terms   []Term   `json:"terms"`
	Extract *Extract `json:"extract,omitempty"`
}

// Extract names a JMESPath expression evaluated against each matched
// message's JSON body.
type Extract struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ParseDefinition decodes a query definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode query definition: %w", err)
	}
	if len(def.Terms) == 0 {
		return nil, fmt.Errorf("query definition has no terms")
	}
	for i, t := range def.Terms {
		if t.Pattern == "" {
			return nil, fmt.Errorf("query definition term %d has an empty pattern", i)
		}
	}
	if def.Extract != nil && (def.Extract.Name == "" || def.Extract.Path == "") {
		return nil, fmt.Errorf("query definition extract needs both name and path")
	}
	return &def, nil
}

// LoadDefinition reads and decodes a query definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query definition: %w", err)
	}
	return ParseDefinition(data)
}
