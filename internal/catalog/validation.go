package catalog

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"bookcatalog/internal/types"
)

var isUUID = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("validation_is_uuid", "must be a valid identifier")
	}
	return nil
})

func validateAuthor(a *types.AuthorInput) error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Name, validation.Required),
	)
}

func validateNewBook(b *types.NewBook) error {
	err := validation.ValidateStruct(b,
		validation.Field(&b.Title, validation.Required),
		validation.Field(&b.Author, validation.NotNil),
	)
	if err != nil {
		return err
	}

	if err := validateAuthor(b.Author); err != nil {
		return validation.Errors{"author": err}
	}

	return nil
}

func validatePatch(p *types.BookPatch) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.NilOrNotEmpty),
	)
	if err != nil {
		return err
	}

	if p.Author == nil {
		return nil
	}

	if p.Author.Input != nil {
		if err := validateAuthor(p.Author.Input); err != nil {
			return validation.Errors{"author": err}
		}
		return nil
	}

	return validation.Errors{
		"author": validation.Validate(p.Author.Id, validation.Required, isUUID),
	}.Filter()
}

// ValidateId rejects identifiers that cannot name any stored record.
func ValidateId(id string) error {
	return validation.Validate(id, validation.Required, isUUID)
}
