package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names, also used as metric labels.
const (
	StrategyFencedJSON     = "fenced-json"
	StrategyBraceSpanJSON  = "brace-span-json"
	StrategyLiteralMapping = "literal-mapping"
)

// First fenced block, optionally tagged json, whose body is a brace-delimited
// object. The object match is non-greedy so only the first block is taken.
var fencedObjectPattern = regexp.MustCompile("(?s)```(?i:json)?\\s*(\\{.*?\\})\\s*```")

// FencedJSON parses the first fenced JSON object in text as strict JSON.
func FencedJSON(text string) (map[string]any, bool) {
	body, ok := fencedBody(text)
	if !ok {
		return nil, false
	}
	return decodeJSONObject(body)
}

// BraceSpanJSON parses the span from the first '{' to the last '}' as strict
// JSON.
func BraceSpanJSON(text string) (map[string]any, bool) {
	span, ok := braceSpan(text)
	if !ok {
		return nil, false
	}
	return decodeJSONObject(span)
}

// LiteralMapping parses a literal mapping that JSON rejects, such as one
// with single-quoted strings or trailing commas. The trimmed text is tried
// first, then the fenced body and the brace span. Only candidates written
// as a brace-delimited mapping are considered.
func LiteralMapping(text string) (map[string]any, bool) {
	candidates := []string{strings.TrimSpace(text)}
	if body, ok := fencedBody(text); ok {
		candidates = append(candidates, body)
	}
	if span, ok := braceSpan(text); ok {
		candidates = append(candidates, span)
	}

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		if mapping, ok := decodeLiteralMapping(candidate); ok {
			return mapping, true
		}
	}
	return nil, false
}

func fencedBody(text string) (string, bool) {
	match := fencedObjectPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeJSONObject(s string) (map[string]any, bool) {
	var mapping map[string]any
	if err := json.Unmarshal([]byte(s), &mapping); err != nil {
		return nil, false
	}
	if mapping == nil {
		return nil, false
	}
	return mapping, true
}

// decodeLiteralMapping reads s as a Python-style literal mapping. Quoted
// strings and the None, True and False keywords are first rewritten to
// their JSON spelling, then the result is read as a YAML flow mapping,
// which also accepts a trailing comma.
func decodeLiteralMapping(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}

	rewritten, hasPairs, ok := rewriteLiteral(s)
	if !ok || !hasPairs {
		return nil, false
	}

	var value any
	if err := yaml.Unmarshal([]byte(rewritten), &value); err != nil {
		return nil, false
	}

	mapping, ok := normalize(value).(map[string]any)
	if !ok || len(mapping) == 0 {
		return nil, false
	}
	return mapping, true
}

var literalKeywords = map[string]string{
	"None":  "null",
	"True":  "true",
	"False": "false",
}

// rewriteLiteral converts every quoted string in s to a JSON string and the
// literal keywords to their YAML spelling. Tabs outside strings become
// spaces. The second result reports whether a key/value separator was seen
// outside a string, which tells a mapping apart from a set such as "{a, b}".
func rewriteLiteral(s string) (string, bool, bool) {
	var b strings.Builder
	hasPairs := false
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			value, next, closed := readQuoted(s, i)
			if !closed {
				return "", false, false
			}
			quoted, err := json.Marshal(value)
			if err != nil {
				return "", false, false
			}
			b.Write(quoted)
			i = next
		case c == '\t':
			b.WriteByte(' ')
			i++
		case c == ':':
			hasPairs = true
			b.WriteByte(c)
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			word := s[i:j]
			if keyword, found := literalKeywords[word]; found {
				word = keyword
			}
			b.WriteString(word)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), hasPairs, true
}

// readQuoted decodes the quoted string starting at s[start] using Python
// escape rules and returns its value and the index just past the closing
// quote.
func readQuoted(s string, start int) (string, int, bool) {
	quote := s[start]
	var b strings.Builder

	for i := start + 1; i < len(s); {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, true
		case c != '\\':
			b.WriteByte(c)
			i++
			continue
		}

		if i+1 >= len(s) {
			return "", 0, false
		}
		esc := s[i+1]
		i += 2
		switch esc {
		case '\n':
			// line continuation
		case '\\', '\'', '"':
			b.WriteByte(esc)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'x', 'u', 'U':
			width := 2
			switch esc {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if i+width > len(s) {
				return "", 0, false
			}
			code, err := strconv.ParseUint(s[i:i+width], 16, 32)
			if err != nil {
				return "", 0, false
			}
			b.WriteRune(rune(code))
			i += width
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i - 1
			for j < len(s) && j < i+2 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			code, _ := strconv.ParseUint(s[i-1:j], 8, 32)
			b.WriteRune(rune(code))
			i = j
		default:
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}
	return "", 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// normalize converts decoded YAML values to the shapes encoding/json
// produces for an any target, so every strategy yields comparable mappings.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprint(v)
		}
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}
