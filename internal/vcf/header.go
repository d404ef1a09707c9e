package vcf

import (
	"strings"
)

// HeaderElement is a structured meta-information line such as
//
//	##INFO=<ID=CSQ,Number=.,Type=String,Description="... Format: Allele|Consequence">
type HeaderElement struct {
	Kind        string            // INFO, FORMAT, FILTER, contig, ...
	ID          string            // value of the ID sub-field
	Description string            // value of the Description sub-field, unquoted
	Fields      map[string]string // all sub-fields, unquoted
	Keys        []string          // sub-field names in file order
}

// Get returns a sub-field value by name.
func (h HeaderElement) Get(key string) (string, bool) {
	v, ok := h.Fields[key]
	return v, ok
}

// ParseHeaderElement parses a "##KIND=<k=v,...>" line.
// Unstructured lines (##fileformat=VCFv4.2) and malformed lines return false.
func ParseHeaderElement(line string) (HeaderElement, bool) {
	if !strings.HasPrefix(line, "##") {
		return HeaderElement{}, false
	}
	kind, body, ok := strings.Cut(line[2:], "=")
	if !ok || len(body) < 2 || body[0] != '<' || body[len(body)-1] != '>' {
		return HeaderElement{}, false
	}

	h := HeaderElement{
		Kind:   kind,
		Fields: make(map[string]string),
	}
	for _, kv := range splitHeaderFields(body[1 : len(body)-1]) {
		key, val, _ := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		val = unquote(val)
		if _, dup := h.Fields[key]; !dup {
			h.Keys = append(h.Keys, key)
		}
		h.Fields[key] = val
	}
	h.ID = h.Fields["ID"]
	h.Description = h.Fields["Description"]
	return h, true
}

// splitHeaderFields splits on commas that are not inside double quotes.
func splitHeaderFields(s string) []string {
	var (
		parts   []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuote {
				i++ // skip escaped character
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
		v = strings.ReplaceAll(v, `\"`, `"`)
		v = strings.ReplaceAll(v, `\\`, `\`)
	}
	return v
}
