package server

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opds-community/libopds2-go/opds1"

	"bookcatalog/internal/types"
)

const (
	opdsAcquisitionType = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	atomNamespace       = "http://www.w3.org/2005/Atom"
	dcNamespace         = "http://purl.org/dc/terms/"
)

func booksFeed(appName, selfPath string, views []*types.BookView, updated time.Time) *opds1.Feed {
	feed := &opds1.Feed{
		ID:           "urn:bookcatalog:books",
		Title:        strings.TrimSpace(appName + " books"),
		Updated:      updated.UTC(),
		TotalResults: len(views),
		ItemsPerPage: len(views),
		Links: []opds1.Link{
			{Rel: "self", Href: selfPath, TypeLink: opdsAcquisitionType},
			{Rel: "start", Href: selfPath, TypeLink: opdsAcquisitionType},
		},
	}

	for _, b := range views {
		entry := opds1.Entry{
			ID:    "urn:uuid:" + b.Id,
			Title: b.Title,
		}

		if b.Author != nil {
			entry.Author = []opds1.Author{{Name: *b.Author}}
		}

		if b.Language != nil {
			entry.Language = *b.Language
		}

		if b.Publisher != nil {
			entry.Publisher = *b.Publisher
		}

		if b.Isbn != nil {
			entry.Identifier = "urn:isbn:" + *b.Isbn
		}

		entry.Content.Content = describe(b)

		feed.Entries = append(feed.Entries, entry)
	}

	return feed
}

// describe puts the fields OPDS has no element for into the entry content
func describe(b *types.BookView) string {
	var parts []string

	if b.NumberOfPages != nil {
		parts = append(parts, "Pages: "+strconv.Itoa(*b.NumberOfPages))
	}
	if b.Price != nil {
		parts = append(parts, "Price: "+strconv.FormatFloat(*b.Price, 'f', 2, 64))
	}

	return strings.Join(parts, "\n")
}

func renderOPDS(feed *opds1.Feed) ([]byte, error) {
	buf := bytes.NewBufferString(xml.Header)

	enc := xml.NewEncoder(buf)
	err := enc.EncodeElement(feed, xml.StartElement{
		Name: xml.Name{Local: "feed"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: atomNamespace},
			{Name: xml.Name{Local: "xmlns:dc"}, Value: dcNamespace},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding OPDS feed: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encoding OPDS feed: %w", err)
	}

	return buf.Bytes(), nil
}
