package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"empty input", "", ""},
		{"image markup removed", "before ![alt](http://x/y.png) after", "before  after"},
		{"link markup removed", "see [docs](http://example.com) here", "see  here"},
		{"emphasis stripped", "*bold* _ital_ `code` ~strike~ a/b", "bold ital code strike ab"},
		{"image before link order", "![i](u)[t](u)", ""},
		{"link without image bang kept apart", "a ![x](y) and [z](w)", "a  and "},
		{"unmatched brackets kept", "array[0] (note)", "array[0] (note)"},
		{"only markers", "*_`~/", ""},
		{"emphasis inside link markup", "[a]*(b)", ""},
		{"emphasis inside image markup", "![x]_(y)", ""},
		{"stripping never leaves a link", "see [docs]`(here)` please", "see  please"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"*bold* with [link](http://a) and ![img](http://b)",
		"nested [a [b](c)](d)",
		"[a]*(b)",
		"![i]~(j) and [k]/(l)",
		"unicode ёжик *жирный*",
		"brackets ] ( mixed ![",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}
