package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbridge/internal/faults"
)

const actionListXML = `<xml>
  <action><id>123</id><title>Some demo action</title></action>
  <action><id>456</id><title>Another action</title></action>
</xml>`

func TestParseTitles_List(t *testing.T) {
	titles, err := ParseTitles([]byte(actionListXML))
	require.NoError(t, err)
	assert.Equal(t, Titles{"123": "Some demo action", "456": "Another action"}, titles)
}

func TestParseTitles_SingleItemNormalizedLikeList(t *testing.T) {
	titles, err := ParseTitles([]byte(`<xml><petition><id>9</id><title>Save the caves</title></petition></xml>`))
	require.NoError(t, err)
	assert.Equal(t, Titles{"9": "Save the caves"}, titles)
}

func TestParseTitles_EmptyDocument(t *testing.T) {
	titles, err := ParseTitles([]byte(`<xml></xml>`))
	require.NoError(t, err)
	require.NotNil(t, titles)
	assert.Empty(t, titles)
}

func TestParseTitles_Garbage(t *testing.T) {
	_, err := ParseTitles([]byte(`<html><body>504 Gateway`))
	assert.Error(t, err)
}

func TestClient_URL(t *testing.T) {
	c := NewClient("https://upstream.example/api", "superfoo")
	assert.Equal(t, "https://upstream.example/api/superfoo/actions.xml", c.URL(TypeAction))
	assert.Equal(t, "https://upstream.example/api/superfoo/petitions", c.URL(TypePetition))
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/superfoo/actions.xml":
			w.Write([]byte(actionListXML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "superfoo")

	titles, err := c.Fetch(context.Background(), TypeAction)
	require.NoError(t, err)
	assert.Len(t, titles, 2)

	_, err = c.Fetch(context.Background(), TypePetition)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryExternalLookup, faults.CategoryOf(err))
}

func TestClient_FetchWithoutUsername(t *testing.T) {
	c := NewClient("https://upstream.example/api", "")
	_, err := c.Fetch(context.Background(), TypeAction)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConfig, faults.CategoryOf(err))
}

func TestClient_FetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "superfoo")
	_, err := c.Fetch(context.Background(), TypeAction)
	require.Error(t, err)
	assert.True(t, faults.IsFatalToBatch(err))
}
