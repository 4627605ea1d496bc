package rss

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

var ErrNoChannel = errors.New("feed has no channel element")

// Reader pulls items out of an RSS document one at a time.
type Reader struct {
	p *xpp.XMLPullParser
}

func NewReader(r io.Reader) *Reader {
	return &Reader{p: xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)}
}

// Items yields the <item> elements in document order. Each item is read from
// the stream only when the consumer asks for it.
func (r *Reader) Items() iter.Seq2[*Element, error] {
	return func(yield func(*Element, error) bool) {
		seenChannel := false

		for {
			ev, err := r.p.Next()
			if err != nil {
				yield(nil, fmt.Errorf("read feed: %w", err))
				return
			}

			switch ev {
			case xpp.EndDocument:
				if !seenChannel {
					yield(nil, ErrNoChannel)
				}
				return
			case xpp.StartTag:
				if r.p.Space != NSNone {
					continue
				}
				switch r.p.Name {
				case "channel":
					seenChannel = true
				case "item":
					if !seenChannel {
						yield(nil, ErrNoChannel)
						return
					}
					item, err := readElement(r.p)
					if err != nil {
						yield(nil, fmt.Errorf("read item: %w", err))
						return
					}
					if !yield(item, nil) {
						return
					}
				}
			}
		}
	}
}

// readElement consumes the element the parser is positioned on, including
// its end tag.
func readElement(p *xpp.XMLPullParser) (*Element, error) {
	el := &Element{
		Space: p.Space,
		Name:  p.Name,
		Attrs: attrs(p.Attrs),
	}

	var text strings.Builder
	for {
		ev, err := p.Next()
		if err != nil {
			return nil, err
		}

		switch ev {
		case xpp.StartTag:
			child, err := readElement(p)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xpp.Text:
			text.WriteString(p.Text)
		case xpp.EndTag:
			el.Text = strings.TrimSpace(text.String())
			return el, nil
		case xpp.EndDocument:
			return nil, io.ErrUnexpectedEOF
		}
	}
}

func attrs(in []xml.Attr) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for _, a := range in {
		out[a.Name.Local] = a.Value
	}
	return out
}
