package pushshift_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/require"

	"threadlytics/pkg/pushshift"
)

const testBaseURL = "https://archive.test/reddit"

func newTestClient(t *testing.T) *pushshift.Client {
	t.Helper()

	client := pushshift.NewClient(&pushshift.ClientConfig{
		BaseURL:           testBaseURL,
		TransportSettings: pushshift.DefaultConfig.TransportSettings,
	})
	gock.InterceptClient(client.HTTPClient().Client())

	t.Cleanup(func() {
		gock.Off()
		client.Close() //nolint:errcheck
	})

	return client
}

func TestQuery_Values(t *testing.T) {
	t.Parallel()

	t.Run("zero query only has nothing set", func(t *testing.T) {
		t.Parallel()

		require.Empty(t, pushshift.Query{}.Values())
	})

	t.Run("full query", func(t *testing.T) {
		t.Parallel()

		v := pushshift.Query{
			Q:         "help",
			IDs:       []string{"a", "b"},
			Size:      25,
			Fields:    []string{"id", "created_utc"},
			Sort:      pushshift.SortAsc,
			SortType:  pushshift.SortTypeCreated,
			Author:    "someone",
			Subreddit: "SuicideWatch",
			After:     100,
			Before:    200,
			Score:     ">10",
			Metadata:  true,
		}.Values()

		require.Equal(t, "help", v.Get("q"))
		require.Equal(t, "a,b", v.Get("ids"))
		require.Equal(t, "25", v.Get("size"))
		require.Equal(t, "id,created_utc", v.Get("fields"))
		require.Equal(t, "asc", v.Get("sort"))
		require.Equal(t, "created_utc", v.Get("sort_type"))
		require.Equal(t, "someone", v.Get("author"))
		require.Equal(t, "SuicideWatch", v.Get("subreddit"))
		require.Equal(t, "100", v.Get("after"))
		require.Equal(t, "200", v.Get("before"))
		require.Equal(t, ">10", v.Get("score"))
		require.Equal(t, "true", v.Get("metadata"))
		require.False(t, v.Has("frequency"))
	})
}

func TestClient_SearchSubmissions(t *testing.T) { //nolint:paralleltest
	client := newTestClient(t)

	gock.New(testBaseURL).
		Get("/search/submission").
		MatchParam("subreddit", "SuicideWatch").
		MatchParam("after", "100").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"data": []map[string]any{
				{"id": "b", "created_utc": 102},
				{"id": "a", "created_utc": 101},
			},
		})

	records, err := client.SearchSubmissions(t.Context(), pushshift.Query{Subreddit: "SuicideWatch", After: 100})
	require.NoError(t, err)
	require.Len(t, records, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(records[0], &first))
	require.Equal(t, "b", first["id"])
	require.True(t, gock.IsDone())
}

func TestClient_StatusError(t *testing.T) { //nolint:paralleltest
	client := newTestClient(t)

	gock.New(testBaseURL).
		Get("/search/comment").
		Reply(http.StatusTooManyRequests)

	_, err := client.SearchComments(t.Context(), pushshift.Query{IDs: []string{"x"}})
	require.ErrorIs(t, err, pushshift.ErrUnexpectedStatus)

	var statusErr *pushshift.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestClient_SubmissionCommentIDs(t *testing.T) { //nolint:paralleltest
	client := newTestClient(t)

	gock.New(testBaseURL).
		Get("/submission/comment_ids/s1").
		Reply(http.StatusOK).
		JSON(map[string]any{"data": []string{"c1", "c2", "c3"}})

	ids, err := client.SubmissionCommentIDs(t.Context(), "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2", "c3"}, ids)
}
