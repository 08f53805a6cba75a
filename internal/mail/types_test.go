package mail

import (
	"reflect"
	"testing"
)

func TestDecodeRecipients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json array", `["a@example.com","b@example.com"]`, []string{"a@example.com", "b@example.com"}},
		{"empty json array", `[]`, []string{}},
		{"single address", "a@example.com", []string{"a@example.com"}},
		{"comma separated", "a@example.com,b@example.com", []string{"a@example.com", "b@example.com"}},
		{"comma separated with spaces", " a@example.com , b@example.com ", []string{"a@example.com", "b@example.com"}},
		{"trailing comma", "a@example.com,", []string{"a@example.com"}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"malformed json array", `["unterminated`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeRecipients(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeRecipients(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
