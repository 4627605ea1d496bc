package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_import/internal/driver"
	"content_import/internal/driver/drivertest"
	"content_import/internal/httpfetch"
)

// Items are large enough that the feed cannot sit in socket buffers, so the
// body is still being read while earlier candidates are processed.
func TestFetch_SlowConsumerOutlivesHTTPTimeout(t *testing.T) {
	filler := strings.Repeat("x", 256<<10)

	var feed strings.Builder
	feed.WriteString("<rss><channel>")
	for i := range 4 {
		fmt.Fprintf(&feed, "<item><title>Item %d</title><link>https://news.example.com/%d</link>"+
			"<description>%s</description></item>", i, i, filler)
	}
	feed.WriteString("</channel></rss>")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed.String()))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := httpfetch.New(httpfetch.Config{Timeout: 200 * time.Millisecond, MaxAttempts: 1}, logger)
	store := drivertest.NewMemory()
	d := New(client, store.Stores(), logger)

	seq, err := d.Fetch(context.Background(), driver.Options{
		ContentModel:    "article",
		ContentAuthor:   "editor",
		ContentStatus:   "published",
		ContentLanguage: "en",
		ContentSection:  1,
		Extra:           map[string]string{"url": srv.URL},
	})
	require.NoError(t, err)

	var titles []string
	for c, err := range seq {
		require.NoError(t, err)
		titles = append(titles, c.Title)
		time.Sleep(150 * time.Millisecond)
	}

	assert.Equal(t, []string{"Item 0", "Item 1", "Item 2", "Item 3"}, titles)
}
