package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/storage/authors"
	"bookcatalog/internal/storage/books"
	"bookcatalog/internal/types"
)

const (
	bookId   = "0b5c1a7e-3c4e-4b7f-9f0e-1d2a3b4c5d6e"
	authorId = "7f1e2d3c-4b5a-4697-8887-a9b8c7d6e5f4"
)

func ptr[T any](v T) *T {
	return &v
}

func newTestService(t *testing.T) (*Service, *authors.MockRepository, *books.MockRepository) {
	ctrl := gomock.NewController(t)
	ar := authors.NewMockRepository(ctrl)
	br := books.NewMockRepository(ctrl)
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(ar, br, l), ar, br
}

func TestResolveAuthor_Existing(t *testing.T) {
	svc, ar, _ := newTestService(t)
	ctx := context.Background()

	ar.EXPECT().FindByName(ctx, "John Doe").Return(&types.Author{Id: authorId, Name: "John Doe"}, nil)

	id, err := svc.ResolveAuthor(ctx, &types.AuthorInput{Name: "John Doe", Country: ptr("UK")})
	require.NoError(t, err)
	assert.Equal(t, authorId, id)
}

func TestResolveAuthor_New(t *testing.T) {
	svc, ar, _ := newTestService(t)
	ctx := context.Background()
	in := &types.AuthorInput{Name: "John Doe", Country: ptr("UK")}

	gomock.InOrder(
		ar.EXPECT().FindByName(ctx, "John Doe").Return(nil, nil),
		ar.EXPECT().CreateIfAbsent(ctx, in).Return(&types.Author{Id: authorId, Name: "John Doe", Country: ptr("UK")}, nil),
	)

	id, err := svc.ResolveAuthor(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, authorId, id)
}

func TestResolveAuthor_EmptyName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveAuthor(context.Background(), &types.AuthorInput{})

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolveAuthor_Nil(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveAuthor(context.Background(), nil)

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolveAuthor_StoreFailureIsValidation(t *testing.T) {
	svc, ar, _ := newTestService(t)
	ctx := context.Background()

	ar.EXPECT().FindByName(ctx, "John Doe").Return(nil, errors.New("connection reset"))

	_, err := svc.ResolveAuthor(ctx, &types.AuthorInput{Name: "John Doe"})

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateBook(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()

	nb := &types.NewBook{
		Title:         "Test Book",
		Author:        &types.AuthorInput{Name: "John Doe"},
		Price:         ptr(9.99),
		Isbn:          ptr("1234567890"),
		Language:      ptr("English"),
		NumberOfPages: ptr(100),
		Publisher:     ptr("Test Publisher"),
	}

	ar.EXPECT().FindByName(ctx, "John Doe").Return(&types.Author{Id: authorId, Name: "John Doe"}, nil)
	br.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, b *types.Book) (*types.Book, error) {
		assert.Equal(t, authorId, b.Author)
		assert.Equal(t, "Test Book", b.Title)
		created := *b
		created.Id = bookId
		return &created, nil
	})

	book, err := svc.CreateBook(ctx, nb)
	require.NoError(t, err)
	assert.Equal(t, bookId, book.Id)
	assert.Equal(t, authorId, book.Author)
	assert.Equal(t, 9.99, *book.Price)
	assert.Equal(t, "Test Publisher", *book.Publisher)
}

func TestCreateBook_SameAuthorTwice(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()
	author := &types.Author{Id: authorId, Name: "John Doe"}

	// second lookup finds the author created by the first call
	gomock.InOrder(
		ar.EXPECT().FindByName(ctx, "John Doe").Return(nil, nil),
		ar.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(author, nil),
		ar.EXPECT().FindByName(ctx, "John Doe").Return(author, nil),
	)
	br.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, b *types.Book) (*types.Book, error) {
		return b, nil
	}).Times(2)

	first, err := svc.CreateBook(ctx, &types.NewBook{Title: "One", Author: &types.AuthorInput{Name: "John Doe"}})
	require.NoError(t, err)
	second, err := svc.CreateBook(ctx, &types.NewBook{Title: "Two", Author: &types.AuthorInput{Name: "John Doe"}})
	require.NoError(t, err)

	assert.Equal(t, first.Author, second.Author)
}

func TestCreateBook_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	for name, nb := range map[string]*types.NewBook{
		"no title":          {Author: &types.AuthorInput{Name: "John Doe"}},
		"no author":         {Title: "Test Book"},
		"empty author name": {Title: "Test Book", Author: &types.AuthorInput{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateBook(context.Background(), nb)

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestListBooks(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()

	const missingAuthor = "11111111-2222-4333-8444-555555555555"

	br.EXPECT().GetAll(ctx).Return([]*types.Book{
		{Id: "b1", Title: "First", Author: authorId, Price: ptr(19.99)},
		{Id: "b2", Title: "Second", Author: authorId},
		{Id: "b3", Title: "Orphan", Author: missingAuthor},
	}, nil)
	ar.EXPECT().GetByIds(ctx, authorId, missingAuthor).Return(map[string]*types.Author{
		authorId: {Id: authorId, Name: "Jane Doe"},
	}, nil)

	views, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "First", views[0].Title)
	assert.Equal(t, "Jane Doe", *views[0].Author)
	assert.Equal(t, 19.99, *views[0].Price)
	assert.Equal(t, "Jane Doe", *views[1].Author)
	assert.Nil(t, views[2].Author)
}

func TestListBooks_Empty(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().GetAll(ctx).Return(nil, nil)
	ar.EXPECT().GetByIds(ctx).Return(map[string]*types.Author{}, nil)

	views, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestListBooks_StoreFailure(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().GetAll(ctx).Return(nil, errors.New("connection refused"))

	_, err := svc.ListBooks(ctx)
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestGetBook(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().GetById(ctx, bookId).Return(&types.Book{Id: bookId, Title: "Found", Author: authorId}, nil)
	ar.EXPECT().GetById(ctx, authorId).Return(&types.Author{Id: authorId, Name: "Alice"}, nil)

	view, err := svc.GetBook(ctx, bookId)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *view.Author)
}

func TestGetBook_NotFound(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().GetById(ctx, bookId).Return(nil, nil)

	_, err := svc.GetBook(ctx, bookId)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBook(ctx, "invalidId")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBook(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Update(ctx, bookId, &types.BookUpdate{Title: ptr("Updated Book Title"), Price: ptr(20.0)}).
		Return(&types.Book{Id: bookId, Title: "Updated Book Title", Author: authorId, Price: ptr(20.0), Isbn: ptr("123456789")}, nil)

	book, err := svc.UpdateBook(ctx, bookId, &types.BookPatch{Title: ptr("Updated Book Title"), Price: ptr(20.0)})
	require.NoError(t, err)
	assert.Equal(t, "Updated Book Title", book.Title)
	assert.Equal(t, 20.0, *book.Price)
	assert.Equal(t, "123456789", *book.Isbn)
}

func TestUpdateBook_AuthorId(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Update(ctx, bookId, &types.BookUpdate{Author: ptr(authorId)}).
		Return(&types.Book{Id: bookId, Title: "T", Author: authorId}, nil)

	book, err := svc.UpdateBook(ctx, bookId, &types.BookPatch{Author: &types.AuthorRef{Id: authorId}})
	require.NoError(t, err)
	assert.Equal(t, authorId, book.Author)
}

func TestUpdateBook_AuthorDescriptor(t *testing.T) {
	svc, ar, br := newTestService(t)
	ctx := context.Background()

	ar.EXPECT().FindByName(ctx, "Bob").Return(&types.Author{Id: authorId, Name: "Bob"}, nil)
	br.EXPECT().Update(ctx, bookId, &types.BookUpdate{Author: ptr(authorId)}).
		Return(&types.Book{Id: bookId, Title: "T", Author: authorId}, nil)

	_, err := svc.UpdateBook(ctx, bookId, &types.BookPatch{Author: &types.AuthorRef{Input: &types.AuthorInput{Name: "Bob"}}})
	require.NoError(t, err)
}

func TestUpdateBook_NotFound(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Update(ctx, bookId, gomock.Any()).Return(nil, nil)

	_, err := svc.UpdateBook(ctx, bookId, &types.BookPatch{Title: ptr("Some Title")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBook_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for name, tc := range map[string]struct {
		id    string
		patch *types.BookPatch
	}{
		"malformed id":     {id: "invalidId", patch: &types.BookPatch{Title: ptr("X")}},
		"empty title":      {id: bookId, patch: &types.BookPatch{Title: ptr("")}},
		"malformed author": {id: bookId, patch: &types.BookPatch{Author: &types.AuthorRef{Id: "nope"}}},
		"nameless author":  {id: bookId, patch: &types.BookPatch{Author: &types.AuthorRef{Input: &types.AuthorInput{}}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateBook(ctx, tc.id, tc.patch)

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestDeleteBook(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Delete(ctx, bookId).Return(&types.Book{Id: bookId, Title: "Book to Delete", Author: authorId}, nil)

	book, err := svc.DeleteBook(ctx, bookId)
	require.NoError(t, err)
	assert.Equal(t, "Book to Delete", book.Title)
}

func TestDeleteBook_NotFound(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Delete(ctx, bookId).Return(nil, nil)

	_, err := svc.DeleteBook(ctx, bookId)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.DeleteBook(ctx, "invalidId")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBook_StoreFailure(t *testing.T) {
	svc, _, br := newTestService(t)
	ctx := context.Background()

	br.EXPECT().Delete(ctx, bookId).Return(nil, errors.New("connection refused"))

	_, err := svc.DeleteBook(ctx, bookId)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
