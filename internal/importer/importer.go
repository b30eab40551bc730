package importer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/opds-community/libopds2-go/opds1"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/types"
)

const linkRelNext = "next"

//go:generate mockgen -source=importer.go -destination=mock_importer.go -package=importer

// BookCreator is satisfied by catalog.Service.
type BookCreator interface {
	CreateBook(ctx context.Context, nb *types.NewBook) (*types.Book, error)
}

type Stats struct {
	Pages    int
	Created  int
	Skipped  int
	Rejected int
}

type Importer struct {
	Client *http.Client
	Logger *slog.Logger
	Books  BookCreator
	// MaxPages of zero follows next links until the feed ends
	MaxPages int
}

// Import walks the acquisition feed page by page and creates a book for
// every entry that has both a title and an author. Entries the catalog
// rejects are counted and skipped; any other failure stops the import.
func (im *Importer) Import(ctx context.Context, feedURL *url.URL) (*Stats, error) {
	stats := &Stats{}
	seen := make(map[string]struct{})

	for page := feedURL; page != nil; {
		if im.MaxPages > 0 && stats.Pages >= im.MaxPages {
			im.Logger.InfoContext(ctx, "Stopping at page limit", slog.Int("pages", stats.Pages))
			break
		}

		if _, ok := seen[page.String()]; ok {
			im.Logger.WarnContext(ctx, "Feed links back to already imported page "+page.String())
			break
		}
		seen[page.String()] = struct{}{}

		l := im.Logger.With(slog.String("feed", page.String()))

		feed, err := im.fetch(ctx, page, l)
		if err != nil {
			return stats, err
		}
		stats.Pages += 1

		for _, entry := range feed.Entries {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			if err := im.consume(ctx, &entry, stats, l); err != nil {
				return stats, err
			}
		}

		page = nextPage(page, feed, l)
	}

	return stats, nil
}

func (im *Importer) fetch(ctx context.Context, page *url.URL, l *slog.Logger) (*opds1.Feed, error) {
	l.DebugContext(ctx, "Begin processing feed page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	res, err := im.Client.Do(req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch feed: "+err.Error())
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(res.Body)
	}()

	if err != nil {
		l.ErrorContext(ctx, "Failed to read feed body: "+err.Error())
		return nil, fmt.Errorf("fetching feed (reading response): %w", err)
	}

	if res.StatusCode != http.StatusOK {
		l.ErrorContext(ctx, "Feed responded with "+res.Status)
		return nil, fmt.Errorf("fetching feed: unexpected status %v", res.Status)
	}

	var feed opds1.Feed
	err = xml.Unmarshal(removeDisallowedCodepoints(bs, l), &feed)
	if err != nil {
		l.ErrorContext(ctx, "Failed to unmarshal feed: "+err.Error())
		return nil, fmt.Errorf("unmarshalling feed: %w", err)
	}

	return &feed, nil
}

func (im *Importer) consume(ctx context.Context, entry *opds1.Entry, stats *Stats, l *slog.Logger) error {
	nb := entryBook(entry)
	if nb == nil {
		stats.Skipped += 1
		l.WarnContext(ctx, "Skip entry without title or author", slog.String("entry", strings.TrimSpace(entry.ID)))
		return nil
	}

	book, err := im.Books.CreateBook(ctx, nb)
	if err != nil {
		var ve *catalog.ValidationError
		if errors.As(err, &ve) {
			stats.Rejected += 1
			l.WarnContext(ctx, "Catalog rejected entry "+nb.Title+": "+err.Error())
			return nil
		}

		return fmt.Errorf("creating book %q: %w", nb.Title, err)
	}

	stats.Created += 1
	l.InfoContext(ctx, "Imported book "+book.Id+" ("+book.Title+")")
	return nil
}

// entryBook maps an entry onto a new book, using the first named author.
// Returns nil when the entry has no title or no author.
func entryBook(entry *opds1.Entry) *types.NewBook {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return nil
	}

	var authorName string
	for _, author := range entry.Author {
		if name := strings.TrimSpace(author.Name); name != "" {
			authorName = name
			break
		}
	}

	if authorName == "" {
		return nil
	}

	nb := &types.NewBook{
		Title:  title,
		Author: &types.AuthorInput{Name: authorName},
	}

	if lang := strings.TrimSpace(entry.Language); lang != "" {
		nb.Language = &lang
	}

	return nb
}

func nextPage(current *url.URL, feed *opds1.Feed, l *slog.Logger) *url.URL {
	link := chooseLink(feed.Links, func(link *opds1.Link) string {
		if link.Rel != linkRelNext {
			return "unknown rel " + link.Rel
		}

		if link.TypeLink != "" && !strings.HasPrefix(link.TypeLink, "application/atom+xml") {
			return "unknown type: " + link.TypeLink
		}

		return ""
	}, l)

	if link == nil {
		return nil
	}

	next, err := url.Parse(link.Href)
	if err != nil {
		l.Error("Failed to parse next page link " + link.Href + ": " + err.Error())
		return nil
	}

	return current.ResolveReference(next)
}

// chooseLink returns the single link accepted by matcher. The matcher
// reports why a link does not fit, or an empty string for a match.
func chooseLink(links []opds1.Link, matcher func(link *opds1.Link) string, l *slog.Logger) *opds1.Link {
	var ret *opds1.Link

	for _, link := range links {
		link := link // per-iteration copy; ret keeps &link (go directive is pre-1.22)
		link.Rel = strings.TrimSpace(link.Rel)
		link.TypeLink = strings.TrimSpace(link.TypeLink)
		link.Href = strings.TrimSpace(link.Href)

		if mismatch := matcher(&link); mismatch != "" {
			l.Debug("Skip non-matching link: " + mismatch)
			continue
		}

		if ret != nil {
			l.Warn("Skip duplicate matching link: " + link.Href)
			continue
		}

		ret = &link
	}

	return ret
}
