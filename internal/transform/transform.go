// Package transform provides the named, composable value transforms applied to
// raw cell values before they become part of a task candidate.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Error reports a failed or unknown transform. It is field-scoped: callers
// convert it into a per-row issue and continue with other fields.
type Error struct {
	Transform string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unknown transform '%s'", e.Transform)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Func applies a single transform to a value with optional arguments.
type Func func(value any, args []string) (any, error)

var registry = map[string]Func{
	"trim":     transformTrim,
	"lower":    transformLower,
	"upper":    transformUpper,
	"to_int":   transformToInt,
	"basename": transformBasename,
	"split":    transformSplit,
	"join":     transformJoin,
}

// Names returns the registered transform names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Known reports whether a transform name (without arguments) is registered.
func Known(name string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Apply composes the named transforms over value in order. An unknown name or
// a failing transform returns an *Error naming the offending transform; the
// value processed so far is discarded.
func Apply(value any, transforms []string) (any, error) {
	result := value
	for _, spec := range transforms {
		name, args, err := parseTransform(spec)
		if err != nil {
			return nil, err
		}
		fn, ok := registry[name]
		if !ok {
			return nil, &Error{Transform: name}
		}
		result, err = fn(result, args)
		if err != nil {
			return nil, &Error{Transform: name, Err: err}
		}
	}
	return result, nil
}

// parseTransform splits a transform spec like "split('|')" or "to_int(0)" into
// a lowercase name and its arguments. Bare names have no arguments.
func parseTransform(spec string) (string, []string, error) {
	text := strings.TrimSpace(spec)
	if text == "" {
		return "", nil, &Error{Transform: spec, Err: fmt.Errorf("empty transform")}
	}
	open := strings.IndexByte(text, '(')
	if open == -1 || !strings.HasSuffix(text, ")") {
		return strings.ToLower(text), nil, nil
	}
	name := strings.ToLower(strings.TrimSpace(text[:open]))
	return name, splitArgs(text[open+1 : len(text)-1]), nil
}

// splitArgs parses a comma-separated argument list supporting single- and
// double-quoted string literals and bare identifiers.
func splitArgs(source string) []string {
	var args []string
	var buf strings.Builder
	var quote byte
	inQuote := false

	flush := func() {
		arg := strings.TrimSpace(buf.String())
		arg = strings.Trim(arg, `'"`)
		if arg != "" {
			args = append(args, arg)
		}
		buf.Reset()
	}

	for i := 0; i < len(source); i++ {
		ch := source[i]
		if inQuote {
			if ch == quote {
				inQuote = false
			} else {
				buf.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inQuote = true
			quote = ch
		case ',':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return args
}

// IsMissing reports whether a value counts as absent for mapping purposes:
// nil, empty or whitespace-only strings, NaN floats, and empty lists are
// missing. Zero, false, and any non-empty value are not.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// Stringify casts a scalar to its string form. Strings pass through; numbers
// keep their literal form where possible.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

func transformTrim(value any, _ []string) (any, error) {
	if value == nil {
		return nil, nil
	}
	return strings.TrimSpace(Stringify(value)), nil
}

func transformLower(value any, _ []string) (any, error) {
	if value == nil {
		return nil, nil
	}
	return strings.ToLower(Stringify(value)), nil
}

func transformUpper(value any, _ []string) (any, error) {
	if value == nil {
		return nil, nil
	}
	return strings.ToUpper(Stringify(value)), nil
}

// transformToInt coerces to an integer. Empty or unparseable input falls back
// to the first argument parsed as an int (default "0").
func transformToInt(value any, args []string) (any, error) {
	fallback := 0
	if len(args) > 0 && args[0] != "" {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("to_int default %q is not an integer", args[0])
		}
		fallback = parsed
	}

	switch val := value.(type) {
	case nil:
		return fallback, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return int(f), nil
		}
		return fallback, nil
	}

	text := strings.TrimSpace(Stringify(value))
	if text == "" {
		return fallback, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int(f), nil
	}
	return fallback, nil
}

// transformBasename treats the value as a URL or path and returns the final
// path segment, stripping scheme and query.
func transformBasename(value any, _ []string) (any, error) {
	if value == nil {
		return nil, nil
	}
	text := Stringify(value)
	segment := text
	if parsed, err := url.Parse(text); err == nil && parsed.Path != "" {
		segment = parsed.Path
	}
	if idx := strings.LastIndexByte(segment, '/'); idx != -1 {
		segment = segment[idx+1:]
	}
	if idx := strings.LastIndexByte(segment, '\\'); idx != -1 {
		segment = segment[idx+1:]
	}
	if segment == "" {
		return text, nil
	}
	return segment, nil
}

func transformSplit(value any, args []string) (any, error) {
	delimiter := "|"
	if len(args) > 0 {
		delimiter = args[0]
	}
	switch val := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string(nil), val...), nil
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return parts, nil
	}
	text := Stringify(value)
	if text == "" {
		return []string{}, nil
	}
	raw := strings.Split(text, delimiter)
	parts := make([]string, len(raw))
	for i, part := range raw {
		parts[i] = strings.TrimSpace(part)
	}
	return parts, nil
}

func transformJoin(value any, args []string) (any, error) {
	delimiter := "|"
	if len(args) > 0 {
		delimiter = args[0]
	}
	switch val := value.(type) {
	case nil:
		return "", nil
	case []string:
		return strings.Join(val, delimiter), nil
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, delimiter), nil
	}
	return Stringify(value), nil
}
