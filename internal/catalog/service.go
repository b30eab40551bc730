package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bookcatalog/internal/storage/authors"
	"bookcatalog/internal/storage/books"
	"bookcatalog/internal/types"
)

type Service struct {
	authors authors.Repository
	books   books.Repository
	l       *slog.Logger
}

func NewService(ar authors.Repository, br books.Repository, l *slog.Logger) *Service {
	return &Service{authors: ar, books: br, l: l}
}

// ResolveAuthor returns the id of the author named exactly like in,
// creating the author from in when there is none. Country and birthdate
// of an existing author are never touched. Store failures are reported as
// validation errors, same as a bad descriptor.
func (s *Service) ResolveAuthor(ctx context.Context, in *types.AuthorInput) (string, error) {
	if in == nil {
		return "", invalid(errors.New("author: cannot be blank"))
	}

	if err := validateAuthor(in); err != nil {
		return "", invalid(err)
	}

	existing, err := s.authors.FindByName(ctx, in.Name)
	if err != nil {
		return "", invalid(fmt.Errorf("looking up author: %w", err))
	}

	if existing != nil {
		return existing.Id, nil
	}

	created, err := s.authors.CreateIfAbsent(ctx, in)
	if err != nil {
		return "", invalid(fmt.Errorf("creating author: %w", err))
	}

	s.l.InfoContext(ctx, "Resolved new author "+created.Id+" ("+created.Name+")")
	return created.Id, nil
}

func (s *Service) CreateBook(ctx context.Context, nb *types.NewBook) (*types.Book, error) {
	if err := validateNewBook(nb); err != nil {
		return nil, invalid(err)
	}

	authorId, err := s.ResolveAuthor(ctx, nb.Author)
	if err != nil {
		return nil, err
	}

	book, err := s.books.Create(ctx, &types.Book{
		Title:         nb.Title,
		Author:        authorId,
		Price:         nb.Price,
		Isbn:          nb.Isbn,
		Language:      nb.Language,
		NumberOfPages: nb.NumberOfPages,
		Publisher:     nb.Publisher,
	})
	if err != nil {
		return nil, invalid(fmt.Errorf("creating book: %w", err))
	}

	return book, nil
}

// ListBooks returns every book with its author name, fetching all
// referenced authors in one go.
func (s *Service) ListBooks(ctx context.Context) ([]*types.BookView, error) {
	bs, err := s.books.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching books: %w", err)
	}

	var authorIds []string
	seenAuthor := make(map[string]struct{})
	for _, b := range bs {
		if _, ok := seenAuthor[b.Author]; !ok {
			seenAuthor[b.Author] = struct{}{}
			authorIds = append(authorIds, b.Author)
		}
	}

	as, err := s.authors.GetByIds(ctx, authorIds...)
	if err != nil {
		return nil, fmt.Errorf("fetching authors: %w", err)
	}

	ret := make([]*types.BookView, 0, len(bs))
	for _, b := range bs {
		author, ok := as[b.Author]
		if !ok {
			s.l.WarnContext(ctx, "Book "+b.Id+" references missing author "+b.Author)
		}
		ret = append(ret, b.View(author))
	}

	return ret, nil
}

func (s *Service) GetBook(ctx context.Context, id string) (*types.BookView, error) {
	if err := ValidateId(id); err != nil {
		return nil, ErrNotFound
	}

	b, err := s.books.GetById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching book: %w", err)
	}

	if b == nil {
		return nil, ErrNotFound
	}

	author, err := s.authors.GetById(ctx, b.Author)
	if err != nil {
		return nil, fmt.Errorf("fetching author: %w", err)
	}

	return b.View(author), nil
}

// UpdateBook applies the fields present in patch. The author may come as an
// id, stored as is, or as a descriptor resolved like on creation.
func (s *Service) UpdateBook(ctx context.Context, id string, patch *types.BookPatch) (*types.Book, error) {
	if err := ValidateId(id); err != nil {
		return nil, invalid(fmt.Errorf("id: %w", err))
	}

	if err := validatePatch(patch); err != nil {
		return nil, invalid(err)
	}

	update := &types.BookUpdate{
		Title:         patch.Title,
		Price:         patch.Price,
		Isbn:          patch.Isbn,
		Language:      patch.Language,
		NumberOfPages: patch.NumberOfPages,
		Publisher:     patch.Publisher,
	}

	if patch.Author != nil {
		authorId := patch.Author.Id
		if patch.Author.Input != nil {
			var err error
			authorId, err = s.ResolveAuthor(ctx, patch.Author.Input)
			if err != nil {
				return nil, err
			}
		}
		update.Author = &authorId
	}

	b, err := s.books.Update(ctx, id, update)
	if err != nil {
		return nil, invalid(fmt.Errorf("updating book: %w", err))
	}

	if b == nil {
		return nil, ErrNotFound
	}

	return b, nil
}

// DeleteBook removes the book and returns what it was.
func (s *Service) DeleteBook(ctx context.Context, id string) (*types.Book, error) {
	if err := ValidateId(id); err != nil {
		return nil, ErrNotFound
	}

	b, err := s.books.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting book: %w", err)
	}

	if b == nil {
		return nil, ErrNotFound
	}

	s.l.InfoContext(ctx, "Deleted book "+b.Id+" ("+b.Title+")")
	return b, nil
}
