// Package firewall validates and sanitizes inbound webhook payloads before
// anything is written to durable storage. Unauthenticated or spammy payloads
// are rejected here so they never reach the queue.
package firewall

import (
	"regexp"
	"sort"
	"strings"

	"hookbridge/internal/faults"
	"hookbridge/internal/submission"
)

// nameFields are every field that may carry a person name. Spam campaigns
// target all of them.
var nameFields = []string{
	submission.FieldName,
	submission.FieldSurname,
	submission.FieldFirstName,
	submission.FieldLastName,
}

var urlPattern = regexp.MustCompile(`(?i)(http|www\.|//)`)

// Step is one receive-side check. Steps run in order and may mutate the
// submission; any error aborts intake entirely.
type Step struct {
	Name string
	Run  func(submission.Submission) error
}

// Firewall holds the configured shared secret and the ordered receive chain.
type Firewall struct {
	secret string
	steps  []Step
}

// New builds a firewall with the default chain. Extra steps run after the
// defaults, before the payload is accepted.
func New(secret string, extra ...Step) *Firewall {
	f := &Firewall{secret: secret}
	f.steps = []Step{
		{Name: "checkRequiredFields", Run: CheckRequiredFields},
		{Name: "checkSecret", Run: f.checkSecret},
		{Name: "firewallNames", Run: FirewallNames},
	}
	f.steps = append(f.steps, extra...)
	return f
}

// Apply runs the receive chain over the submission, mutating it in place.
// On success the secret field has been removed and name fields sanitized.
func (f *Firewall) Apply(sub submission.Submission) error {
	for _, step := range f.steps {
		if err := step.Run(sub); err != nil {
			return err
		}
	}
	return nil
}

// CheckRequiredFields fails with a validation fault naming every missing key
// among secret and email.
func CheckRequiredFields(sub submission.Submission) error {
	var missing []string
	for _, key := range []string{submission.FieldSecret, submission.FieldEmail} {
		if !sub.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return faults.New(faults.CategoryValidation,
			"webhook data is invalid or incomplete, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (f *Firewall) checkSecret(sub submission.Submission) error {
	return CheckSecret(sub, f.secret)
}

// CheckSecret verifies sub against the configured shared secret.
func CheckSecret(sub submission.Submission, configured string) error {
	if configured == "" {
		return faults.New(faults.CategoryConfig, "webhook secret not configured")
	}
	if sub.Get(submission.FieldSecret) != configured {
		return faults.New(faults.CategoryAuth, "webhook secret mismatch")
	}
	delete(sub, submission.FieldSecret)
	return nil
}

// FirewallNames rejects name fields that look like they carry a URL and
// strips pictographic emoji from the rest. Only the two big emoji blocks are
// stripped; emoji outside them pass through.
func FirewallNames(sub submission.Submission) error {
	for _, field := range nameFields {
		value := sub.Get(field)
		if value == "" {
			continue
		}
		if urlPattern.MatchString(value) {
			return faults.New(faults.CategorySpam,
				"%s found to contain a URL, rejecting data", field)
		}
		sub[field] = StripEmoji(value)
	}
	return nil
}

// StripEmoji removes runes in U+1F300..U+1F5FF (misc symbols and pictographs)
// and U+E000..U+F8FF (private use area). Idempotent.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 0x1F300 && r <= 0x1F5FF) || (r >= 0xE000 && r <= 0xF8FF) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
