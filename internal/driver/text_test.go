package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"content_import/internal/driver"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"<p>a &amp; b</p>", "a & b"},
		{"<style>p{}</style><p>x</p><script>alert(1)</script>", "x"},
		{"  <br/> spaced  ", "spaced"},
		{"<p>unclosed", "unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, driver.StripTags(tt.in))
		})
	}
}

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantEmail string
		wantName  string
		wantOK    bool
	}{
		{"email and name", "j@x.com (Jane Doe)", "j@x.com", "Jane Doe", true},
		{"surrounding spaces", "  j@x.com   (Jane)  ", "j@x.com", "Jane", true},
		{"name only", "Jane Doe", "", "", false},
		{"email only", "j@x.com", "", "", false},
		{"invalid email", "jane (Jane Doe)", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, name, ok := driver.ParseAuthor(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantEmail, email)
			assert.Equal(t, tt.wantName, name)
		})
	}
}
