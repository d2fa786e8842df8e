package linkace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinkClassifier/internal/domain"
)

func TestListLinksFollowsPagination(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			fmt.Fprintf(w, `{"data":[{"id":1,"url":"https://a.com","title":"A","lists":[{"id":7}]}],
				"current_page":1,"last_page":2,"next_page_url":"%s/lists/7/links?page=2"}`, server.URL)
		case "2":
			fmt.Fprint(w, `{"data":[{"id":2,"url":"https://b.com","title":"B","lists":[{"id":7}]}],
				"current_page":2,"last_page":2,"next_page_url":null}`)
		default:
			t.Errorf("unexpected page %q", page)
		}
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second, nil)
	links, err := client.ListLinks(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, links, 2, "pagination must be followed to completion")
	assert.Equal(t, 1, links[0].ID)
	assert.Equal(t, 2, links[1].ID)
	assert.Equal(t, []int{7}, links[0].Lists)
}

func TestListLinksUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second, nil)
	_, err := client.ListLinks(context.Background(), 7)
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
}

func TestUpdateLinkSendsListIDs(t *testing.T) {
	t.Parallel()

	var got map[string][]int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/links/42", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer server.Close()

	client := New(server.URL+"/", "secret", 5*time.Second, nil)
	require.NoError(t, client.UpdateLink(context.Background(), 42, []int{3, 5}))
	assert.Equal(t, []int{3, 5}, got["lists"])
}

func TestAddLinkToListPreservesMemberships(t *testing.T) {
	t.Parallel()

	var updated []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"data":{"id":42,"url":"https://a.com","lists":[{"id":1},{"id":2}]}}`)
		case http.MethodPut:
			var body map[string][]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			updated = body["lists"]
			fmt.Fprint(w, `{}`)
		}
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second, nil)
	require.NoError(t, client.AddLinkToList(context.Background(), 42, 9))
	assert.Equal(t, []int{1, 2, 9}, updated)

	// Already a member: no update issued.
	updated = nil
	require.NoError(t, client.AddLinkToList(context.Background(), 42, 2))
	assert.Nil(t, updated)
}

func TestRemoveLinkFromList(t *testing.T) {
	t.Parallel()

	var updated []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"data":{"id":42,"url":"https://a.com","lists":[{"id":1},{"id":2}]}}`)
		case http.MethodPut:
			var body map[string][]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			updated = body["lists"]
			fmt.Fprint(w, `{}`)
		}
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second, nil)
	require.NoError(t, client.RemoveLinkFromList(context.Background(), 42, 1))
	assert.Equal(t, []int{2}, updated)
}

func TestProbe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		fmt.Fprint(w, `{"data":{"id":1}}`)
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second, nil)
	assert.NoError(t, client.Probe(context.Background()))
}
