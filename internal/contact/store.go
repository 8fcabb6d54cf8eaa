// Package contact defines the external person datastore boundary and the
// deduplication heuristic that maps a submission to a contact identity.
package contact

import (
	"context"
	"time"
)

// EmailMatch is one email row joined to its owning contact. The same contact
// may appear more than once when the email is recorded against it repeatedly,
// and several distinct contacts may share an email.
type EmailMatch struct {
	ContactID int64
	FirstName string
	LastName  string
}

// Address is the storable form of a postal address. Street carries the
// address1/address2 pair joined with ", " when a second line was supplied;
// the identity key for matching is always (address1, city, postcode), so an
// address differing only in its second line is not duplicated.
type Address struct {
	Address1     string
	Street       string
	City         string
	Postcode     string
	LocationType string
}

// Activity is one recorded interaction. Never deduplicated: each webhook
// delivery produces its own activity.
type Activity struct {
	ContactID  int64
	Subject    string
	OccurredAt time.Time
}

//go:generate mockgen -destination=mocks/store_mock.go -package=mocks hookbridge/internal/contact Store

// Store is the external contact datastore. Implementations must exclude
// soft-deleted and deceased contacts from FindByEmail.
type Store interface {
	FindByEmail(ctx context.Context, email string) ([]EmailMatch, error)
	Create(ctx context.Context, firstName, lastName, email string) (int64, error)

	// FindPhone matches on the digit-normalized value.
	FindPhone(ctx context.Context, contactID int64, phoneNumeric string) (bool, error)
	CreatePhone(ctx context.Context, contactID int64, phone string) error

	// FindAddress matches on the (address1, city, postcode) identity key.
	FindAddress(ctx context.Context, contactID int64, address1, city, postcode string) (bool, error)
	CreateAddress(ctx context.Context, contactID int64, addr Address) error

	CreateActivity(ctx context.Context, act Activity) (int64, error)
}
