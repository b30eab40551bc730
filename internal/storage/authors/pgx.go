package authors

import (
	"context"
	"errors"
	"log/slog"
	"time"

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

type pgxAuthor struct {
	Id        string     `db:"id"`
	Name      string     `db:"name"`
	Country   *string    `db:"country"`
	Birthdate *time.Time `db:"birthdate"`
}

func (a *pgxAuthor) intoCommon() *types.Author {
	var birthdate *types.Date
	if a.Birthdate != nil {
		birthdate = &types.Date{Time: *a.Birthdate}
	}

	return &types.Author{
		Id:        a.Id,
		Name:      a.Name,
		Country:   a.Country,
		Birthdate: birthdate,
	}
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Author, error) {
	sql, params, err := p.g.From("author").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	return p.getOne(ctx, sql, params)
}

func (p *pgxRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Author), nil
	}

	sql, params, err := p.g.From("author").
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthor

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Author, len(rows))
	for _, row := range rows {
		ret[row.Id] = row.intoCommon()
	}

	return ret, nil
}

func (p *pgxRepo) FindByName(ctx context.Context, name string) (*types.Author, error) {
	sql, params, err := p.g.From("author").
		Where(goqu.C("name").Eq(name)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, err
	}

	return p.getOne(ctx, sql, params)
}

func (p *pgxRepo) CreateIfAbsent(ctx context.Context, author *types.AuthorInput) (*types.Author, error) {
	sql, params, err := insertIfAbsentQuery(p.g, author)
	if err != nil {
		return nil, err
	}

	created, err := p.getOne(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	if created != nil {
		p.l.DebugContext(ctx, "Created author "+created.Id+" ("+created.Name+")")
		return created, nil
	}

	// Lost the race to a concurrent insert of the same name
	existing, err := p.FindByName(ctx, author.Name)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, errors.New("author " + author.Name + " neither inserted nor found")
	}

	return existing, nil
}

// insertIfAbsentQuery yields no row when the name is already taken
func insertIfAbsentQuery(g goqu.DialectWrapper, author *types.AuthorInput) (string, []any, error) {
	rec := goqu.Record{"name": author.Name}
	if author.Country != nil {
		rec["country"] = *author.Country
	}
	if author.Birthdate != nil {
		rec["birthdate"] = author.Birthdate.Format(time.DateOnly)
	}

	return g.Insert("author").
		Rows(rec).
		OnConflict(goqu.DoNothing()).
		Returning(goqu.Star()).
		ToSQL()
}

func (p *pgxRepo) getOne(ctx context.Context, sql string, params []any) (*types.Author, error) {
	var row pgxAuthor

	err := pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}
