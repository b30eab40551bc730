package authors

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=authors

import (
	"context"

	"bookcatalog/internal/types"
)

type Repository interface {
	GetById(ctx context.Context, id string) (*types.Author, error)
	// GetByIds shall return map with NON-NULLS!
	GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error)

	// FindByName matches name exactly, case included.
	FindByName(ctx context.Context, name string) (*types.Author, error)

	// CreateIfAbsent inserts the author unless one with the same name exists,
	// in both cases returning the stored author. Safe against concurrent callers.
	CreateIfAbsent(ctx context.Context, author *types.AuthorInput) (*types.Author, error)
}
