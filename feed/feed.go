// Package feed builds the blog's RSS 2.0 feed from its posts.
package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gitlab.com/efronlicht/nbblog/postmeta"
	"gitlab.com/efronlicht/nbblog/roll"
)

type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title         string `xml:"title"`
	Description   string `xml:"description"`
	Link          string `xml:"link"`
	Copyright     string `xml:"copyright,omitempty"`
	TTL           int    `xml:"ttl,omitempty"` // minutes
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	PubDate       string `xml:"pubDate,omitempty"`
	Items         []Item `xml:"item"`
}

type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description,omitempty"`
	GUID        GUID   `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

type GUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Build makes a feed with one item per post, in the order given (newest first, if they came from an index).
// The channel's pubDate is the newest post's date; lastBuildDate is now.
// Item GUIDs are derived from the post's link, so they're stable across builds.
func Build(ch Channel, posts []postmeta.Entry, now time.Time) (RSS, error) {
	base := strings.TrimSuffix(ch.Link, "/")
	ch.Items = make([]Item, 0, len(posts))
	var newest time.Time
	for _, p := range posts {
		date, err := p.Date()
		if err != nil {
			return RSS{}, fmt.Errorf("feed item %s: %w", p.Name, err)
		}
		if date.After(newest) {
			newest = date
		}
		link := base + "/" + roll.Link(p.Slug)
		ch.Items = append(ch.Items, Item{
			Title:       roll.Title(p),
			Link:        link,
			Description: p.Summary,
			GUID:        GUID{Value: uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()},
			PubDate:     date.Format(time.RFC1123Z),
		})
	}
	if !newest.IsZero() {
		ch.PubDate = newest.Format(time.RFC1123Z)
	}
	ch.LastBuildDate = now.Format(time.RFC1123Z)
	return RSS{Version: "2.0", Channel: ch}, nil
}

// Encode writes the feed as indented XML with an XML header.
func (r RSS) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	return enc.Close()
}
