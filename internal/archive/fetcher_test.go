package archive_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"threadlytics/internal/archive"
	"threadlytics/internal/core"
	"threadlytics/pkg/async"
	"threadlytics/pkg/pushshift"
	"threadlytics/pkg/retry"
)

type step struct {
	err     error
	records []map[string]any
}

var (
	unavailable = step{err: &pushshift.StatusError{StatusCode: http.StatusServiceUnavailable, URL: "/search/submission"}}
	emptyPage   = step{records: []map[string]any{}}
)

// fakeArchive serves submissions created in (after, before) from a fixed dataset unless a call is scripted. A
// non-zero maxSize caps the page size like the real service does.
type fakeArchive struct {
	mu sync.Mutex

	submissions []map[string]any
	maxSize     int
	script      map[int]step
	calls       int
	queries     []pushshift.Query

	commentIDs     map[string][]string
	comments       map[string]map[string]any
	idFailures     int
	commentLookups []pushshift.Query
	commentIDCalls int
}

func (a *fakeArchive) SearchSubmissions(_ context.Context, q pushshift.Query) ([]json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	call := a.calls
	a.calls++
	a.queries = append(a.queries, q)

	if s, ok := a.script[call]; ok {
		if s.err != nil {
			return nil, s.err
		}
		return encode(s.records), nil
	}

	size := q.Size
	if a.maxSize > 0 && size > a.maxSize {
		size = a.maxSize
	}

	var out []map[string]any
	for _, r := range a.submissions {
		ts := int64(r["created_utc"].(float64))
		if len(q.IDs) > 0 && !lo.Contains(q.IDs, r["id"].(string)) {
			continue
		}
		if ts <= q.After || (q.Before > 0 && ts >= q.Before) {
			continue
		}
		out = append(out, r)
		if size > 0 && len(out) == size {
			break
		}
	}

	return encode(out), nil
}

func (a *fakeArchive) SearchComments(_ context.Context, q pushshift.Query) ([]json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.commentLookups = append(a.commentLookups, q)

	var out []map[string]any
	for _, id := range q.IDs {
		if c, ok := a.comments[id]; ok {
			out = append(out, c)
		}
	}
	return encode(out), nil
}

func (a *fakeArchive) SubmissionCommentIDs(_ context.Context, id string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.commentIDCalls++
	if a.idFailures > 0 {
		a.idFailures--
		return nil, &pushshift.StatusError{StatusCode: http.StatusBadGateway}
	}
	return a.commentIDs[id], nil
}

func encode(records []map[string]any) []json.RawMessage {
	return lo.Map(records, func(r map[string]any, _ int) json.RawMessage {
		return lo.Must(json.Marshal(r))
	})
}

func submissions(from, to int64) []map[string]any {
	var out []map[string]any
	for ts := from; ts <= to; ts++ {
		out = append(out, map[string]any{
			"id":          fmt.Sprintf("s%d", ts),
			"created_utc": float64(ts),
			"title":       fmt.Sprintf("post %d", ts),
			"subreddit":   "test",
		})
	}
	return out
}

type sleeps struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func (s *sleeps) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Count(s.calls, d)
}

const (
	httpBackoff  = 5 * time.Second
	emptyBackoff = time.Second
)

func newFetcher(a *fakeArchive, s *sleeps, withComments bool) *archive.Fetcher {
	return archive.NewFetcher(slog.New(slog.DiscardHandler), a, archive.Options{
		Retry:        retry.Policy{Limit: 15, Backoff: httpBackoff, Sleep: s.sleep},
		EmptyRetry:   retry.Policy{Limit: 15, Backoff: emptyBackoff, Sleep: s.sleep},
		WithComments: withComments,
		Now:          func() time.Time { return time.Unix(1000, 0) },
	})
}

func fetch(t *testing.T, f *archive.Fetcher, filters archive.Filters, after, before int64, size int) ([]archive.Page, error) {
	t.Helper()

	var afterTime, beforeTime time.Time
	if after > 0 {
		afterTime = time.Unix(after, 0)
	}
	if before > 0 {
		beforeTime = time.Unix(before, 0)
	}

	return async.Drain(f.FetchRange(t.Context(), filters, afterTime, beforeTime, size))
}

func timestamps(pages []archive.Page) []int64 {
	var out []int64
	for _, p := range pages {
		for _, s := range p.Submissions {
			ts, _ := s.Created()
			out = append(out, ts)
		}
	}
	return out
}

func TestFetcher_FetchRange_Pagination(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 60)}
	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{Subreddit: "test"}, 0, 1000, 25)
	require.NoError(t, err)

	require.Len(t, pages, 3)
	require.Equal(t, []int{25, 25, 10}, lo.Map(pages, func(p archive.Page, _ int) int { return len(p.Submissions) }))
	require.Equal(t, []bool{false, false, true}, lo.Map(pages, func(p archive.Page, _ int) bool { return p.Final }))
	require.Equal(t, []int64{25, 50, 60}, lo.Map(pages, func(p archive.Page, _ int) int64 { return p.Cursor }))

	ts := timestamps(pages)
	require.Len(t, ts, 60)
	require.IsNonDecreasing(t, ts)
	require.Len(t, lo.Uniq(ts), 60)

	require.Equal(t, []int64{0, 25, 50}, lo.Map(a.queries, func(q pushshift.Query, _ int) int64 { return q.After }))
	for _, q := range a.queries {
		require.Equal(t, int64(1000), q.Before)
		require.Equal(t, "test", q.Subreddit)
		require.Equal(t, pushshift.SortAsc, q.Sort)
		require.Equal(t, 25, q.Size)
	}
}

func TestFetcher_FetchRange_PageSizeIsCapped(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 300), maxSize: pushshift.MaxSize}
	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 1000, 500)
	require.NoError(t, err)

	require.Len(t, timestamps(pages), 300)
	require.Len(t, pages, 3)
	require.True(t, pages[2].Final)
	for _, q := range a.queries {
		require.Equal(t, pushshift.MaxSize, q.Size)
	}
}

func TestFetcher_FetchRange_AfterIsInclusive(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 30)}
	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 10, 20, 25)
	require.NoError(t, err)

	require.Equal(t, lo.RangeFrom[int64](10, 10), timestamps(pages))
	require.Equal(t, int64(9), a.queries[0].After)
}

func TestFetcher_FetchRange_DefaultBeforeIsNow(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 3)}
	_, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 0, 25)
	require.NoError(t, err)
	require.Equal(t, int64(1000), a.queries[0].Before)
}

func TestFetcher_FetchRange_TerminalPageCrossesBefore(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{script: map[int]step{0: {records: submissions(20, 44)}}}
	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 10, 30, 25)
	require.NoError(t, err)

	require.Len(t, pages, 1)
	require.True(t, pages[0].Final)
	require.Equal(t, int64(44), pages[0].Cursor)
	require.Equal(t, 1, a.calls)
}

func TestFetcher_FetchRange_RecordsAreSorted(t *testing.T) {
	t.Parallel()

	shuffled := submissions(1, 5)
	shuffled[0], shuffled[4] = shuffled[4], shuffled[0]
	shuffled[1], shuffled[3] = shuffled[3], shuffled[1]

	a := &fakeArchive{script: map[int]step{0: {records: shuffled}}}
	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 1000, 25)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, timestamps(pages))
}

func TestFetcher_FetchRange_SkipsRecordsWithoutTimestamp(t *testing.T) {
	t.Parallel()

	records := append(submissions(1, 2), map[string]any{"id": "broken", "created_utc": "n/a"}, map[string]any{"id": "absent"})
	a := &fakeArchive{script: map[int]step{0: {records: records}}}

	pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 1000, 25)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, timestamps(pages))
}

func TestFetcher_FetchRange_RetryCeiling(t *testing.T) {
	t.Parallel()

	failures := func(from, to int) map[int]step {
		script := map[int]step{}
		for i := from; i <= to; i++ {
			script[i] = unavailable
		}
		return script
	}

	t.Run("fatal on the 15th consecutive failure", func(t *testing.T) {
		t.Parallel()

		s := &sleeps{}
		a := &fakeArchive{submissions: submissions(1, 10), script: failures(0, 14)}

		pages, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 1000, 25)
		require.Empty(t, pages)
		require.ErrorIs(t, err, archive.ErrConnectivity)
		require.ErrorIs(t, err, pushshift.ErrUnexpectedStatus)
		require.ErrorIs(t, err, retry.ErrLimitReached)

		var fatal *archive.FatalError
		require.ErrorAs(t, err, &fatal)
		require.False(t, fatal.Resumable())
		require.Equal(t, 15, a.calls)
		require.Equal(t, 14, s.count(httpBackoff))
	})

	t.Run("14 failures are recovered", func(t *testing.T) {
		t.Parallel()

		s := &sleeps{}
		a := &fakeArchive{submissions: submissions(1, 10), script: failures(0, 13)}

		pages, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 1000, 25)
		require.NoError(t, err)
		require.Len(t, timestamps(pages), 10)
		require.Equal(t, 14, s.count(httpBackoff))
		require.Equal(t, 15, a.calls)
	})

	t.Run("a success resets the count", func(t *testing.T) {
		t.Parallel()

		script := failures(0, 9)
		for k, v := range failures(11, 24) {
			script[k] = v
		}

		s := &sleeps{}
		a := &fakeArchive{submissions: submissions(1, 40), script: script}

		pages, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 1000, 25)
		require.NoError(t, err)
		require.Len(t, pages, 2)
		require.Equal(t, 24, s.count(httpBackoff))
	})

	t.Run("failures do not advance the cursor", func(t *testing.T) {
		t.Parallel()

		a := &fakeArchive{submissions: submissions(1, 40), script: failures(1, 3)}

		_, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 1000, 25)
		require.NoError(t, err)
		require.Equal(t, []int64{0, 25, 25, 25, 25}, lo.Map(a.queries, func(q pushshift.Query, _ int) int64 { return q.After }))
	})

	t.Run("resume point after yielded pages", func(t *testing.T) {
		t.Parallel()

		a := &fakeArchive{submissions: submissions(1, 60), script: failures(1, 15)}

		pages, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{}, 0, 1000, 25)
		require.Len(t, pages, 1)

		var fatal *archive.FatalError
		require.ErrorAs(t, err, &fatal)
		require.True(t, fatal.Resumable())
		require.Equal(t, int64(25), fatal.Resume)
	})
}

func TestFetcher_FetchRange_EmptyPages(t *testing.T) {
	t.Parallel()

	t.Run("an empty page between two pages is retried", func(t *testing.T) {
		t.Parallel()

		s := &sleeps{}
		a := &fakeArchive{script: map[int]step{
			0: {records: submissions(1, 25)},
			1: emptyPage,
			2: {records: submissions(26, 50)},
		}}

		pages, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 50, 25)
		require.NoError(t, err)

		require.Len(t, pages, 2)
		require.True(t, pages[1].Final)
		require.Equal(t, lo.RangeFrom[int64](1, 50), timestamps(pages))
		require.Equal(t, 1, s.count(emptyBackoff))
		require.Zero(t, s.count(httpBackoff))
		require.Equal(t, 3, a.calls)
	})

	t.Run("two pages, an empty page, then the final page", func(t *testing.T) {
		t.Parallel()

		s := &sleeps{}
		a := &fakeArchive{script: map[int]step{
			0: {records: submissions(1, 25)},
			1: {records: submissions(26, 50)},
			2: emptyPage,
			3: {records: submissions(51, 60)},
		}}

		pages, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 1000, 25)
		require.NoError(t, err)

		require.Equal(t, []int{25, 25, 10}, lo.Map(pages, func(p archive.Page, _ int) int { return len(p.Submissions) }))
		require.True(t, pages[2].Final)
		require.Equal(t, lo.RangeFrom[int64](1, 60), timestamps(pages))
		require.Equal(t, 1, s.count(emptyBackoff))
		require.Zero(t, s.count(httpBackoff))
		require.Equal(t, []int64{0, 25, 50, 50}, lo.Map(a.queries, func(q pushshift.Query, _ int) int64 { return q.After }))
	})

	t.Run("empty result after the ceiling", func(t *testing.T) {
		t.Parallel()

		s := &sleeps{}
		a := &fakeArchive{}

		_, err := fetch(t, newFetcher(a, s, false), archive.Filters{}, 0, 1000, 25)
		require.ErrorIs(t, err, archive.ErrEmptyResult)
		require.NotErrorIs(t, err, archive.ErrConnectivity)
		require.Equal(t, 15, a.calls)
		require.Equal(t, 14, s.count(emptyBackoff))
	})
}

func TestFetcher_FetchRange_CursorIsIdempotent(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 60)}
	f := newFetcher(a, &sleeps{}, false)

	first, err := async.Drain(f.FetchRange(t.Context(), archive.Filters{}, time.Time{}, time.Unix(1000, 0), 25))
	require.NoError(t, err)
	cursor := first[0].Cursor

	// A stale archive answering with records before the cursor.
	stale := &fakeArchive{submissions: submissions(1, 60), script: map[int]step{0: {records: submissions(20, 44)}}}
	again, err := fetch(t, newFetcher(stale, &sleeps{}, false), archive.Filters{}, cursor, 1000, 25)
	require.NoError(t, err)

	for _, ts := range timestamps(again) {
		require.GreaterOrEqual(t, ts, cursor)
	}
	require.Equal(t, int64(25), timestamps(again)[0])
}

func TestFetcher_FetchRange_FieldsAllowList(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 3)}
	_, err := fetch(t, newFetcher(a, &sleeps{}, false), archive.Filters{Fields: []string{"title", "id"}}, 0, 1000, 25)
	require.NoError(t, err)
	require.Equal(t, []string{"title", "id", "created_utc"}, a.queries[0].Fields)
}

func comment(id, parent string, ts float64) map[string]any {
	return map[string]any{
		"id": id, "parent_id": parent, "link_id": "t3_s1", "created_utc": ts, "body": "body " + id,
	}
}

func TestFetcher_FetchRange_Comments(t *testing.T) {
	t.Parallel()

	s := &sleeps{}
	a := &fakeArchive{
		submissions: submissions(1, 2),
		commentIDs:  map[string][]string{"s1": {"c3", "c1", "c2"}},
		comments: map[string]map[string]any{
			"c1": comment("c1", "t3_s1", 10),
			"c2": comment("c2", "t1_c1", 11),
			"c3": comment("c3", "t3_s1", 12),
		},
		idFailures: 2,
	}

	pages, err := fetch(t, newFetcher(a, s, true), archive.Filters{}, 0, 1000, 25)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	page := pages[0]
	require.Equal(t, []string{"c1", "c2", "c3"},
		lo.Map(page.Comments["s1"], func(c core.Comment, _ int) string { return c.ID() }))
	require.Empty(t, page.Comments["s2"])

	require.Equal(t, []string{"c3", "c1", "c2"}, page.Submissions[0].CommentIDs)
	require.NotNil(t, page.Submissions[1].CommentIDs)
	require.Empty(t, page.Submissions[1].CommentIDs)

	require.Equal(t, 2, s.count(httpBackoff))
	require.Equal(t, 4, a.commentIDCalls)
	require.Len(t, a.commentLookups, 1)
}

func TestFetcher_FetchRange_CommentLookupsAreChunked(t *testing.T) {
	t.Parallel()

	ids := make([]string, 150)
	comments := map[string]map[string]any{}
	for i := range ids {
		ids[i] = fmt.Sprintf("c%d", i)
		comments[ids[i]] = comment(ids[i], "t3_s1", float64(i+10))
	}

	a := &fakeArchive{
		submissions: submissions(1, 1),
		commentIDs:  map[string][]string{"s1": ids},
		comments:    comments,
	}

	pages, err := fetch(t, newFetcher(a, &sleeps{}, true), archive.Filters{}, 0, 1000, 25)
	require.NoError(t, err)
	require.Len(t, pages[0].Comments["s1"], 150)
	require.Equal(t, []int{100, 50}, lo.Map(a.commentLookups, func(q pushshift.Query, _ int) int { return q.Size }))
}

func TestFetcher_FetchRange_CommentFailuresAreFatal(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{submissions: submissions(1, 1), idFailures: 100}

	_, err := fetch(t, newFetcher(a, &sleeps{}, true), archive.Filters{}, 0, 1000, 25)
	require.ErrorIs(t, err, archive.ErrConnectivity)
	require.Equal(t, 15, a.commentIDCalls)
}

func TestFetcher_FetchThread(t *testing.T) {
	t.Parallel()

	a := &fakeArchive{
		submissions: submissions(1, 3),
		commentIDs:  map[string][]string{"s2": {"c1"}},
		comments:    map[string]map[string]any{"c1": comment("c1", "t3_s2", 10)},
	}
	f := newFetcher(a, &sleeps{}, true)

	t.Run("found", func(t *testing.T) {
		submission, comments, err := f.FetchThread(t.Context(), "s2")
		require.NoError(t, err)
		require.Equal(t, "s2", submission.ID())
		require.Len(t, comments, 1)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := f.FetchThread(t.Context(), "missing")
		require.ErrorIs(t, err, archive.ErrNotFound)
	})
}

func TestFetcher_FetchRange_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	a := &fakeArchive{submissions: submissions(1, 100)}
	f := newFetcher(a, &sleeps{}, false)

	ch := f.FetchRange(ctx, archive.Filters{}, time.Time{}, time.Unix(1000, 0), 25)
	first := <-ch
	require.NoError(t, first.Err)
	cancel()

	for range ch {
	}
	require.LessOrEqual(t, a.calls, 2)
}
