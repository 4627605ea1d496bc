package driver

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for driver metadata shown to administrators.
const (
	MsgRSS     = "content_import@rss"
	MsgFeed    = "content_import@feed"
	MsgFeedURL = "content_import@url"
)

var messages = catalog.NewBuilder(catalog.Fallback(language.English))

func init() {
	set := func(tag language.Tag, pairs ...string) {
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := messages.SetString(tag, pairs[i], pairs[i+1]); err != nil {
				panic(err)
			}
		}
	}

	set(language.English,
		MsgRSS, "RSS feed",
		MsgFeed, "RSS, Atom or JSON feed",
		MsgFeedURL, "Feed URL",
	)
	set(language.Russian,
		MsgRSS, "RSS-лента",
		MsgFeed, "Лента RSS, Atom или JSON",
		MsgFeedURL, "URL ленты",
	)
	set(language.Ukrainian,
		MsgRSS, "RSS-стрічка",
		MsgFeed, "Стрічка RSS, Atom або JSON",
		MsgFeedURL, "URL стрічки",
	)
}

// Translate returns the text of key in lang, falling back to English.
func Translate(lang language.Tag, key string) string {
	base, _ := lang.Base()
	p := message.NewPrinter(language.Make(base.String()), message.Catalog(messages))
	return p.Sprintf(key)
}
