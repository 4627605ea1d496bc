package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"content_import/internal/domain"
	"content_import/internal/driver"
)

func TestSchema_Validate(t *testing.T) {
	schema := driver.Schema{Fields: []driver.Field{
		{Name: "url", Required: true, Rule: driver.RuleURL},
		{Name: "contact", Rule: driver.RuleEmail},
		{Name: "note"},
	}}

	tests := []struct {
		name    string
		values  map[string]string
		wantErr string
	}{
		{
			name:   "valid",
			values: map[string]string{"url": "https://e.com/rss", "contact": "a@b.com"},
		},
		{
			name:   "optional fields may be missing",
			values: map[string]string{"url": "https://e.com/rss"},
		},
		{
			name:   "unknown keys pass",
			values: map[string]string{"url": "https://e.com/rss", "extra": "x"},
		},
		{
			name:    "missing required",
			values:  map[string]string{"contact": "a@b.com"},
			wantErr: "url is required",
		},
		{
			name:    "blank required",
			values:  map[string]string{"url": "   "},
			wantErr: "url is required",
		},
		{
			name:    "bad url",
			values:  map[string]string{"url": "feeds"},
			wantErr: "url must be a valid url",
		},
		{
			name:    "bad email",
			values:  map[string]string{"url": "https://e.com/rss", "contact": "nobody"},
			wantErr: "contact must be a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.values)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidOptions)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsFor(t *testing.T) {
	imp := &domain.Importer{
		Driver:          "rss",
		DriverOpts:      map[string]string{"url": "https://e.com/rss"},
		ContentModel:    "article",
		ContentAuthor:   "editor",
		ContentSection:  7,
		ContentStatus:   "published",
		ContentLanguage: "en",
	}

	opts := driver.OptionsFor(imp)
	assert.Equal(t, "article", opts.ContentModel)
	assert.Equal(t, "editor", opts.ContentAuthor)
	assert.Equal(t, int64(7), opts.ContentSection)
	assert.Equal(t, "published", opts.ContentStatus)
	assert.Equal(t, "en", opts.ContentLanguage)
	assert.Equal(t, "https://e.com/rss", opts.Get("url"))

	opts.Extra["url"] = "changed"
	assert.Equal(t, "https://e.com/rss", imp.DriverOpts["url"])
}
