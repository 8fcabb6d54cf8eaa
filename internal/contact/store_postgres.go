package contact

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store against the CRM schema. It treats the
// contact tables as externally owned: queries match the documented shape and
// never alter rows it did not create.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the contact tables when they do not exist yet. Deployments
// pointing at a real CRM schema skip this.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS contacts (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		is_deceased BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS contact_emails (
		id BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		email TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS contact_emails_email_idx ON contact_emails (email);
	CREATE TABLE IF NOT EXISTS contact_phones (
		id BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		phone TEXT NOT NULL,
		phone_numeric TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS contact_addresses (
		id BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		address1 TEXT NOT NULL,
		street_address TEXT NOT NULL,
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		location_type TEXT NOT NULL DEFAULT 'Home'
	);
	CREATE TABLE IF NOT EXISTS contact_activities (
		id BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		subject TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate contact schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) ([]EmailMatch, error) {
	const query = `
		SELECT c.id, c.first_name, c.last_name
		FROM contact_emails e
		JOIN contacts c ON c.id = e.contact_id
		WHERE e.email = $1 AND NOT c.is_deleted AND NOT c.is_deceased
		ORDER BY e.id`
	rows, err := s.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("find contacts by email: %w", err)
	}
	defer rows.Close()

	var matches []EmailMatch
	for rows.Next() {
		var m EmailMatch
		if err := rows.Scan(&m.ContactID, &m.FirstName, &m.LastName); err != nil {
			return nil, fmt.Errorf("scan email match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, firstName, lastName, email string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create contact: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO contacts (first_name, last_name) VALUES ($1, $2) RETURNING id`,
		firstName, lastName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO contact_emails (contact_id, email) VALUES ($1, $2)`, id, email); err != nil {
		return 0, fmt.Errorf("insert contact email: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create contact: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) FindPhone(ctx context.Context, contactID int64, phoneNumeric string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contact_phones WHERE contact_id = $1 AND phone_numeric = $2)`,
		contactID, phoneNumeric).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find phone: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreatePhone(ctx context.Context, contactID int64, phone string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_phones (contact_id, phone, phone_numeric) VALUES ($1, $2, $3)`,
		contactID, phone, NormalizePhone(phone))
	if err != nil {
		return fmt.Errorf("insert phone: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAddress(ctx context.Context, contactID int64, address1, city, postcode string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM contact_addresses
			WHERE contact_id = $1 AND address1 = $2 AND city = $3 AND postal_code = $4)`,
		contactID, address1, city, postcode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find address: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateAddress(ctx context.Context, contactID int64, addr Address) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_addresses (contact_id, address1, street_address, city, postal_code, location_type)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		contactID, addr.Address1, addr.Street, addr.City, addr.Postcode, addr.LocationType)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateActivity(ctx context.Context, act Activity) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO contact_activities (contact_id, subject, occurred_at) VALUES ($1, $2, $3) RETURNING id`,
		act.ContactID, act.Subject, act.OccurredAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}
	return id, nil
}
