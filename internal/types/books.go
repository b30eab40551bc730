package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date. It accepts both "2006-01-02" and RFC 3339 on input
// and always renders as "2006-01-02".
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(bs []byte) error {
	var s string
	if err := json.Unmarshal(bs, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("date must be in YYYY-MM-DD or RFC 3339 format: %q", s)
		}
	}

	d.Time = t
	return nil
}

type Author struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	Country   *string `json:"country,omitempty"`
	Birthdate *Date   `json:"birthdate,omitempty"`
}

// AuthorInput describes an author on book creation. Name is the
// de-duplication key, the other fields only apply when a new author is made.
type AuthorInput struct {
	Name      string  `json:"name"`
	Country   *string `json:"country,omitempty"`
	Birthdate *Date   `json:"birthdate,omitempty"`
}

type Book struct {
	Id            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"` // author id
	Price         *float64 `json:"price,omitempty"`
	Isbn          *string  `json:"isbn,omitempty"`
	Language      *string  `json:"language,omitempty"`
	NumberOfPages *int     `json:"numberOfPages,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
}

// BookView is a Book with the author id replaced by the author name,
// null when the referenced author is gone.
type BookView struct {
	Id            string   `json:"id"`
	Title         string   `json:"title"`
	Author        *string  `json:"author"`
	Price         *float64 `json:"price,omitempty"`
	Isbn          *string  `json:"isbn,omitempty"`
	Language      *string  `json:"language,omitempty"`
	NumberOfPages *int     `json:"numberOfPages,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
}

func (b *Book) View(author *Author) *BookView {
	var name *string
	if author != nil {
		name = &author.Name
	}

	return &BookView{
		Id:            b.Id,
		Title:         b.Title,
		Author:        name,
		Price:         b.Price,
		Isbn:          b.Isbn,
		Language:      b.Language,
		NumberOfPages: b.NumberOfPages,
		Publisher:     b.Publisher,
	}
}

type NewBook struct {
	Title         string       `json:"title"`
	Author        *AuthorInput `json:"author"`
	Price         *float64     `json:"price,omitempty"`
	Isbn          *string      `json:"isbn,omitempty"`
	Language      *string      `json:"language,omitempty"`
	NumberOfPages *int         `json:"numberOfPages,omitempty"`
	Publisher     *string      `json:"publisher,omitempty"`
}

func (b *NewBook) UnmarshalJSON(bs []byte) error {
	type plain NewBook
	aux := struct {
		*plain
		NumberOfPages *json.Number `json:"numberOfPages"`
	}{plain: (*plain)(b)}

	if err := json.Unmarshal(bs, &aux); err != nil {
		return err
	}

	pages, err := wholeNumber(aux.NumberOfPages)
	if err != nil {
		return err
	}
	b.NumberOfPages = pages
	return nil
}

// AuthorRef is the author field of an update: either a raw author id
// or a descriptor to be resolved like on creation.
type AuthorRef struct {
	Id    string
	Input *AuthorInput
}

func (a *AuthorRef) UnmarshalJSON(bs []byte) error {
	bs = bytes.TrimSpace(bs)
	if len(bs) > 0 && bs[0] == '{' {
		var in AuthorInput
		if err := json.Unmarshal(bs, &in); err != nil {
			return err
		}
		a.Input = &in
		return nil
	}

	if err := json.Unmarshal(bs, &a.Id); err != nil {
		return fmt.Errorf("author must be an id or an author object: %w", err)
	}
	return nil
}

// BookPatch holds the fields of an update, nil meaning "leave as is".
type BookPatch struct {
	Title         *string    `json:"title"`
	Author        *AuthorRef `json:"author"`
	Price         *float64   `json:"price"`
	Isbn          *string    `json:"isbn"`
	Language      *string    `json:"language"`
	NumberOfPages *int       `json:"numberOfPages"`
	Publisher     *string    `json:"publisher"`
}

func (p *BookPatch) UnmarshalJSON(bs []byte) error {
	type plain BookPatch
	aux := struct {
		*plain
		NumberOfPages *json.Number `json:"numberOfPages"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(bs, &aux); err != nil {
		return err
	}

	pages, err := wholeNumber(aux.NumberOfPages)
	if err != nil {
		return err
	}
	p.NumberOfPages = pages
	return nil
}

// wholeNumber accepts any JSON number without a fractional part, so 100.0 is 100
func wholeNumber(n *json.Number) (*int, error) {
	if n == nil {
		return nil, nil
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, fmt.Errorf("numberOfPages must be a whole number, got %v", n.String())
	}

	v := int(f)
	return &v, nil
}

// BookUpdate is a BookPatch with the author already resolved to an id.
type BookUpdate struct {
	Title         *string
	Author        *string
	Price         *float64
	Isbn          *string
	Language      *string
	NumberOfPages *int
	Publisher     *string
}

func (u *BookUpdate) Empty() bool {
	return u.Title == nil && u.Author == nil && u.Price == nil && u.Isbn == nil &&
		u.Language == nil && u.NumberOfPages == nil && u.Publisher == nil
}
