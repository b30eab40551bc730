package books

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=books

import (
	"context"

	"bookcatalog/internal/types"
)

type Repository interface {
	// GetAll returns books in store order, no sorting applied.
	GetAll(ctx context.Context) ([]*types.Book, error)
	GetById(ctx context.Context, id string) (*types.Book, error)

	Create(ctx context.Context, book *types.Book) (*types.Book, error)
	// Update returns nil when no book has the id.
	Update(ctx context.Context, id string, update *types.BookUpdate) (*types.Book, error)
	// Delete returns the deleted book, or nil when no book has the id.
	Delete(ctx context.Context, id string) (*types.Book, error)
}
