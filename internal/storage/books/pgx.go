package books

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookcatalog/internal/types"
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxBook struct {
	Id            string   `db:"id"`
	Title         string   `db:"title"`
	AuthorId      string   `db:"author_id"`
	Price         *float64 `db:"price"`
	Isbn          *string  `db:"isbn"`
	Language      *string  `db:"language"`
	NumberOfPages *int     `db:"number_of_pages"`
	Publisher     *string  `db:"publisher"`
}

func (b *pgxBook) intoCommon() *types.Book {
	return &types.Book{
		Id:            b.Id,
		Title:         b.Title,
		Author:        b.AuthorId,
		Price:         b.Price,
		Isbn:          b.Isbn,
		Language:      b.Language,
		NumberOfPages: b.NumberOfPages,
		Publisher:     b.Publisher,
	}
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]*types.Book, error) {
	sql, params, err := p.g.From("book").
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBook

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Book, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	sql, params, err := p.g.From("book").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	return p.getOne(ctx, sql, params)
}

func (p *pgxRepo) Create(ctx context.Context, book *types.Book) (*types.Book, error) {
	sql, params, err := insertQuery(p.g, book)
	if err != nil {
		return nil, err
	}

	created, err := p.getOne(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	if created == nil {
		return nil, errors.New("insert of book " + book.Title + " returned no row")
	}

	return created, nil
}

func (p *pgxRepo) Update(ctx context.Context, id string, update *types.BookUpdate) (*types.Book, error) {
	if update.Empty() {
		return p.GetById(ctx, id)
	}

	sql, params, err := updateQuery(p.g, id, update)
	if err != nil {
		return nil, err
	}

	return p.getOne(ctx, sql, params)
}

func (p *pgxRepo) Delete(ctx context.Context, id string) (*types.Book, error) {
	sql, params, err := p.g.Delete("book").
		Where(goqu.C("id").Eq(id)).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	return p.getOne(ctx, sql, params)
}

func (p *pgxRepo) getOne(ctx context.Context, sql string, params []any) (*types.Book, error) {
	var row pgxBook

	err := pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func insertQuery(g goqu.DialectWrapper, book *types.Book) (string, []any, error) {
	rec := goqu.Record{
		"title":     book.Title,
		"author_id": book.Author,
	}
	setOptional(rec, &types.BookUpdate{
		Price:         book.Price,
		Isbn:          book.Isbn,
		Language:      book.Language,
		NumberOfPages: book.NumberOfPages,
		Publisher:     book.Publisher,
	})

	return g.Insert("book").
		Rows(rec).
		Returning(goqu.Star()).
		ToSQL()
}

// updateQuery sets exactly the non-nil fields of u
func updateQuery(g goqu.DialectWrapper, id string, u *types.BookUpdate) (string, []any, error) {
	rec := goqu.Record{}
	if u.Title != nil {
		rec["title"] = *u.Title
	}
	if u.Author != nil {
		rec["author_id"] = *u.Author
	}
	setOptional(rec, u)

	return g.Update("book").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(goqu.Star()).
		ToSQL()
}

// Only set columns go into the record, so absent fields keep their stored value
func setOptional(rec goqu.Record, u *types.BookUpdate) {
	if u.Price != nil {
		rec["price"] = *u.Price
	}
	if u.Isbn != nil {
		rec["isbn"] = *u.Isbn
	}
	if u.Language != nil {
		rec["language"] = *u.Language
	}
	if u.NumberOfPages != nil {
		rec["number_of_pages"] = *u.NumberOfPages
	}
	if u.Publisher != nil {
		rec["publisher"] = *u.Publisher
	}
}
