package podcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input is the untyped set of field assignments taken from a request body
type Input map[string]any

// Empty reports whether the input carries no assignments
func (in Input) Empty() bool { return len(in) == 0 }

// Format of a request body
type Format int

const (
	// FormatForm is an url-encoded form body
	FormatForm Format = iota
	// FormatJSON is a JSON object body
	FormatJSON
)

// Mode selects how missing fields are treated by Bind
type Mode int

const (
	// Replace clears fields missing from the input
	Replace Mode = iota
	// Patch keeps fields missing from the input
	Patch
)

// ErrInvalidBody is returned by ParseInput for bodies which are not a JSON object or form
var ErrInvalidBody = errors.New("invalid request body")

// FormatOf resolves the body format from a Content-Type header value
func FormatOf(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err == nil && mt == "application/json" {
		return FormatJSON
	}
	return FormatForm
}

// ModeFor maps the request method to bind mode, POST creates and everything else patches
func ModeFor(method string) Mode {
	if method == http.MethodPost {
		return Replace
	}
	return Patch
}

// ParseInput decodes body in the given format. An empty body gives an empty input.
func ParseInput(format Format, body []byte) (Input, error) {
	in := Input{}
	if len(bytes.TrimSpace(body)) == 0 {
		return in, nil
	}

	if format == FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, ErrInvalidBody
		}
		switch v := raw.(type) {
		case map[string]any:
			return Input(v), nil
		case nil:
			return in, nil
		case []any:
			if len(v) == 0 {
				return in, nil
			}
		}
		return nil, ErrInvalidBody
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, ErrInvalidBody
	}
	for k, v := range values {
		if len(v) > 0 {
			in[k] = v[len(v)-1]
		}
	}
	return in, nil
}

// text converts an input value to a trimmed string, nil becomes empty
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func optionalText(v any) *string {
	s := text(v)
	if s == "" {
		return nil
	}
	return &s
}

func requiredInteger(name string, v any) (int64, error) {
	var raw string
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("%s should not be blank", name)
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%s should be an integer", name)
		}
		return int64(val), nil
	case json.Number:
		raw = val.String()
	case string:
		raw = val
	default:
		return 0, fmt.Errorf("%s should be an integer", name)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s should not be blank", name)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s should be an integer", name)
	}
	return n, nil
}

func checkLength(name, value string) []string {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return []string{name + " should not be blank"}
	case n < 2:
		return []string{fmt.Sprintf("The %s must be at least 2 characters long", name)}
	case n > 255:
		return []string{fmt.Sprintf("The %s cannot be longer than 255 characters", name)}
	}
	return nil
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && !strings.ContainsAny(s, " \t\n")
}
