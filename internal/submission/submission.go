// Package submission defines the webhook payload as it moves through the
// system: a flat string map, attacker-controlled until the firewall has
// passed, then mutated in place by each processing step.
package submission

import "encoding/json"

// Submission is one inbound webhook payload. Keys follow the upstream form
// field names (name, surname, email, actionid, ...); processing steps add
// derived keys (first_name, last_name).
type Submission map[string]string

// Well-known field keys.
const (
	FieldSecret     = "secret"
	FieldEmail      = "email"
	FieldName       = "name"
	FieldSurname    = "surname"
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldPhone      = "phone"
	FieldAddress1   = "address1"
	FieldAddress2   = "address2"
	FieldTown       = "town"
	FieldPostcode   = "postcode"
	FieldCountry    = "country"
	FieldActionID   = "actionid"
	FieldActionType = "actiontype"
	FieldDate       = "date"
)

// Get returns the value for key, or "" when absent.
func (s Submission) Get(key string) string {
	return s[key]
}

// Has reports whether key is present and non-empty.
func (s Submission) Has(key string) bool {
	return s[key] != ""
}

// IsPetition reports whether this submission relates to a petition rather
// than a lobby action. The actiontype key is only present for petitions.
func (s Submission) IsPetition() bool {
	return s[FieldActionType] == "petition"
}

// Clone returns an independent copy.
func (s Submission) Clone() Submission {
	out := make(Submission, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// JSON renders the submission for forensic logging and queue storage.
func (s Submission) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
