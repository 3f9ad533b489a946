package podcast

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("application/json"))
	assert.Equal(t, FormatJSON, FormatOf("application/json; charset=utf-8"))
	assert.Equal(t, FormatForm, FormatOf("application/x-www-form-urlencoded"))
	assert.Equal(t, FormatForm, FormatOf(""))
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, Replace, ModeFor(http.MethodPost))
	assert.Equal(t, Patch, ModeFor(http.MethodPut))
	assert.Equal(t, Patch, ModeFor(http.MethodPatch))
}

func TestParseInput(t *testing.T) {
	tbl := []struct {
		name   string
		format Format
		body   string
		want   Input
		err    error
	}{
		{name: "empty form", format: FormatForm, body: "", want: Input{}},
		{name: "empty json", format: FormatJSON, body: "  ", want: Input{}},
		{name: "json null", format: FormatJSON, body: "null", want: Input{}},
		{name: "json empty list", format: FormatJSON, body: "[]", want: Input{}},
		{name: "form", format: FormatForm, body: "title=Full+Episode&episodeNumber=1&podcast=24",
			want: Input{"title": "Full Episode", "episodeNumber": "1", "podcast": "24"}},
		{name: "json", format: FormatJSON, body: `{"title":"Full Episode","episodeNumber":1}`,
			want: Input{"title": "Full Episode", "episodeNumber": json.Number("1")}},
		{name: "broken json", format: FormatJSON, body: `{"title":`, err: ErrInvalidBody},
		{name: "json scalar", format: FormatJSON, body: `"title"`, err: ErrInvalidBody},
		{name: "broken form", format: FormatForm, body: "a=%zz", err: ErrInvalidBody},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInput(tt.format, []byte(tt.body))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, in)
		})
	}
}

func TestRequiredInteger(t *testing.T) {
	tbl := []struct {
		in   any
		want int64
		err  string
	}{
		{in: "12", want: 12},
		{in: " 7 ", want: 7},
		{in: json.Number("3"), want: 3},
		{in: float64(5), want: 5},
		{in: "2.0", err: "n should be an integer"},
		{in: "1e2", err: "n should be an integer"},
		{in: json.Number("1.0"), err: "n should be an integer"},
		{in: "99999999999999999999", err: "n should be an integer"},
		{in: "-4", want: -4},
		{in: nil, err: "n should not be blank"},
		{in: "", err: "n should not be blank"},
		{in: "abc", err: "n should be an integer"},
		{in: "1.5", err: "n should be an integer"},
		{in: true, err: "n should be an integer"},
	}

	for _, tt := range tbl {
		n, err := requiredInteger("n", tt.in)
		if tt.err != "" {
			assert.EqualError(t, err, tt.err, "input %v", tt.in)
			continue
		}
		assert.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, n, "input %v", tt.in)
	}
}

func TestValidURL(t *testing.T) {
	assert.True(t, validURL("https://localhost/episodes/full"))
	assert.True(t, validURL("http://example.com:8080/a?b=c"))
	assert.False(t, validURL("not a url"))
	assert.False(t, validURL("localhost/episodes"))
	assert.False(t, validURL("ftp://example.com/file.mp3"))
	assert.False(t, validURL("https://"))
}
