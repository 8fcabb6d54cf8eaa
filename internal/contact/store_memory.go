package contact

import (
	"context"
	"sync"
	"time"
)

type memoryContact struct {
	id         int64
	firstName  string
	lastName   string
	isDeleted  bool
	isDeceased bool
}

type memoryEmail struct {
	contactID int64
	email     string
}

type memoryPhone struct {
	contactID int64
	phone     string
	numeric   string
}

type memoryAddress struct {
	contactID int64
	addr      Address
}

// InMemoryStore backs unit tests and local development. Duplicate email rows
// against the same contact are representable, matching what real CRM data
// looks like.
type InMemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	contacts   []memoryContact
	emails     []memoryEmail
	phones     []memoryPhone
	addresses  []memoryAddress
	activities []Activity

	// FailCreateActivity simulates a store rejection (e.g. an oversized
	// field) for failure-path tests.
	FailCreateActivity error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

// AddContact seeds a contact with an email row and returns its id.
func (s *InMemoryStore) AddContact(firstName, lastName, email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.contacts = append(s.contacts, memoryContact{id: id, firstName: firstName, lastName: lastName})
	s.emails = append(s.emails, memoryEmail{contactID: id, email: email})
	return id
}

// AddEmail seeds an extra email row for an existing contact.
func (s *InMemoryStore) AddEmail(contactID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, memoryEmail{contactID: contactID, email: email})
}

// MarkDeceased flags a contact so FindByEmail skips it.
func (s *InMemoryStore) MarkDeceased(contactID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].id == contactID {
			s.contacts[i].isDeceased = true
		}
	}
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) ([]EmailMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []EmailMatch
	for _, e := range s.emails {
		if e.email != email {
			continue
		}
		for _, c := range s.contacts {
			if c.id == e.contactID && !c.isDeleted && !c.isDeceased {
				matches = append(matches, EmailMatch{
					ContactID: c.id,
					FirstName: c.firstName,
					LastName:  c.lastName,
				})
			}
		}
	}
	return matches, nil
}

func (s *InMemoryStore) Create(_ context.Context, firstName, lastName, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.contacts = append(s.contacts, memoryContact{id: id, firstName: firstName, lastName: lastName})
	s.emails = append(s.emails, memoryEmail{contactID: id, email: email})
	return id, nil
}

func (s *InMemoryStore) FindPhone(_ context.Context, contactID int64, phoneNumeric string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.phones {
		if p.contactID == contactID && p.numeric == phoneNumeric {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) CreatePhone(_ context.Context, contactID int64, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones = append(s.phones, memoryPhone{
		contactID: contactID,
		phone:     phone,
		numeric:   NormalizePhone(phone),
	})
	return nil
}

func (s *InMemoryStore) FindAddress(_ context.Context, contactID int64, address1, city, postcode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses {
		if a.contactID == contactID && a.addr.Address1 == address1 && a.addr.City == city && a.addr.Postcode == postcode {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) CreateAddress(_ context.Context, contactID int64, addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses = append(s.addresses, memoryAddress{contactID: contactID, addr: addr})
	return nil
}

func (s *InMemoryStore) CreateActivity(_ context.Context, act Activity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateActivity != nil {
		return 0, s.FailCreateActivity
	}
	if act.OccurredAt.IsZero() {
		act.OccurredAt = time.Now()
	}
	s.activities = append(s.activities, act)
	return int64(len(s.activities)), nil
}

// Counts returns (contacts, phones, addresses, activities) for assertions.
func (s *InMemoryStore) Counts() (int, int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts), len(s.phones), len(s.addresses), len(s.activities)
}

// Phones returns the stored phone values for a contact.
func (s *InMemoryStore) Phones(contactID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.phones {
		if p.contactID == contactID {
			out = append(out, p.phone)
		}
	}
	return out
}

// Addresses returns the stored addresses for a contact.
func (s *InMemoryStore) Addresses(contactID int64) []Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Address
	for _, a := range s.addresses {
		if a.contactID == contactID {
			out = append(out, a.addr)
		}
	}
	return out
}

// Activities returns every recorded activity for a contact, oldest first.
func (s *InMemoryStore) Activities(contactID int64) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Activity
	for _, a := range s.activities {
		if a.ContactID == contactID {
			out = append(out, a)
		}
	}
	return out
}
