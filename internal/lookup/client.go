package lookup

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"hookbridge/internal/faults"
)

const fetchTimeout = 20 * time.Second

// Client fetches title sets from the upstream list API. The API serves one
// XML document per resource type, keyed by our account username.
type Client struct {
	baseURL  string
	username string
	http     *http.Client
}

// NewClient builds an upstream client. username may be empty; fetches then
// fail with a config fault, which the health reporter surfaces separately
// from network failures.
func NewClient(baseURL, username string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		http:     &http.Client{Timeout: fetchTimeout},
	}
}

// URL returns the list endpoint for one resource type. The actions endpoint
// gained a .xml suffix upstream in autumn 2019; petitions kept the old form.
func (c *Client) URL(typ ResourceType) string {
	path := "petitions"
	if typ == TypeAction {
		path = "actions.xml"
	}
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.username, path)
}

// Fetch downloads and parses the title set. Network errors, non-2xx statuses
// and unparsable documents are external-lookup faults; a parsed document with
// no items yields an empty non-nil Titles.
func (c *Client) Fetch(ctx context.Context, typ ResourceType) (Titles, error) {
	if err := typ.validate(); err != nil {
		return nil, err
	}
	if c.username == "" {
		return nil, faults.New(faults.CategoryConfig,
			"lookup username not configured, cannot access upstream API")
	}

	url := c.URL(typ)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Wrap(faults.CategoryExternalLookup, err, "building lookup request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.CategoryExternalLookup, err, "fetching "+url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, faults.New(faults.CategoryExternalLookup,
			"fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, faults.Wrap(faults.CategoryExternalLookup, err, "reading "+url)
	}

	titles, err := ParseTitles(body)
	if err != nil {
		return nil, faults.Wrap(faults.CategoryExternalLookup, err, "parsing "+url)
	}
	return titles, nil
}

// document matches the upstream XML shape: a root element wrapping repeated
// <action> or <petition> elements. Decoding repeated elements into a slice
// normalizes the single-item and list responses identically.
type document struct {
	Items []item `xml:",any"`
}

type item struct {
	ID    string `xml:"id"`
	Title string `xml:"title"`
}

// ParseTitles parses an upstream list document into id→title pairs.
func ParseTitles(body []byte) (Titles, error) {
	var doc document
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	titles := Titles{}
	for _, it := range doc.Items {
		if it.ID == "" {
			continue
		}
		titles[it.ID] = it.Title
	}
	return titles, nil
}
