package archive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"threadlytics/internal/core"
	"threadlytics/pkg/async"
	"threadlytics/pkg/pushshift"
	"threadlytics/pkg/retry"
)

const (
	// maxIDsPerLookup bounds the ids= parameter of a single content lookup.
	maxIDsPerLookup = 100

	stateInit       = "INIT"
	stateRequesting = "REQUESTING"
	stateRetrying   = "RETRYING"
	stateYielding   = "YIELDING"
	stateDone       = "DONE"
	stateFatal      = "FATAL"
)

var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadlytics_archive_pages_total",
		Help: "The total number of archive pages handed to consumers",
	})

	recordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlytics_archive_records_total",
		Help: "The total number of records retrieved from the archive",
	}, []string{"kind"})

	retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlytics_archive_retries_total",
		Help: "The total number of retried archive requests",
	}, []string{"reason"})
)

// Searcher is the subset of the archive API the fetcher needs; *pushshift.Client implements it.
type Searcher interface {
	SearchSubmissions(ctx context.Context, q pushshift.Query) ([]json.RawMessage, error)
	SearchComments(ctx context.Context, q pushshift.Query) ([]json.RawMessage, error)
	SubmissionCommentIDs(ctx context.Context, submissionID string) ([]string, error)
}

// Filters narrow a fetch. All of them are optional and combine conjunctively.
type Filters struct {
	Query     string
	Author    string
	Subreddit string
	// Score is a threshold expression such as ">10".
	Score string
	// Fields restricts the returned fields; id and created_utc are always added.
	Fields []string
}

func (f Filters) query(size int, after, before int64) pushshift.Query {
	var fields []string
	if len(f.Fields) > 0 {
		fields = lo.Uniq(append(slices.Clone(f.Fields), core.FieldID, core.FieldCreatedUTC))
	}

	return pushshift.Query{
		Q:         f.Query,
		Author:    f.Author,
		Subreddit: f.Subreddit,
		Score:     f.Score,
		Fields:    fields,
		Size:      size,
		Sort:      pushshift.SortAsc,
		SortType:  pushshift.SortTypeCreated,
		After:     after,
		Before:    before,
	}
}

// Page is one batch of submissions sorted by creation time, with the comments of each submission keyed by its id.
type Page struct {
	Submissions []core.Submission
	Comments    map[string][]core.Comment
	// Cursor is the creation time of the last submission.
	Cursor int64
	Final  bool
}

type Options struct {
	// Retry applies to every failed request, EmptyRetry to successful responses without records.
	Retry      retry.Policy
	EmptyRetry retry.Policy

	WithComments bool

	Now func() time.Time
}

// Fetcher pages through the archive. A Fetcher may be reused for sequential fetches but must not run two at once.
type Fetcher struct {
	logger *slog.Logger
	search Searcher

	retry        retry.Policy
	emptyRetry   retry.Policy
	withComments bool
	now          func() time.Time
}

func NewFetcher(logger *slog.Logger, search Searcher, opts Options) *Fetcher {
	f := &Fetcher{
		logger:       logger.With("component", "archive.Fetcher"),
		search:       search,
		retry:        opts.Retry,
		emptyRetry:   opts.EmptyRetry,
		withComments: opts.WithComments,
		now:          opts.Now,
	}

	if f.now == nil {
		f.now = time.Now
	}

	f.retry.OnRetry = f.onRetry("http", f.retry.Limit)
	f.emptyRetry.OnRetry = f.onRetry("empty", f.emptyRetry.Limit)

	return f
}

func (f *Fetcher) onRetry(reason string, limit int) func(error, int) {
	return func(err error, failures int) {
		retries.WithLabelValues(reason).Inc()
		f.logger.Warn("Archive request failed, retrying",
			"state", stateRetrying, "reason", reason, "failures", failures, "limit", limit, "error", err)
	}
}

// FetchRange lazily produces the submissions created in [after, before), oldest first. A zero before means now, a
// zero after means no lower bound. The last page may contain the record that crosses before. Page sizes above
// pushshift.MaxSize are capped. The channel ends after the final page or with a single error result, a *FatalError
// when retries ran out.
func (f *Fetcher) FetchRange(ctx context.Context, filters Filters, after, before time.Time,
	pageSize int) <-chan async.Result[Page] {
	return async.Generator(ctx, func(ctx context.Context, yield async.Yielder[Page]) error {
		return f.fetchRange(ctx, yield, filters, after, before, pageSize)
	})
}

func (f *Fetcher) fetchRange(ctx context.Context, yield async.Yielder[Page], filters Filters,
	after, before time.Time, pageSize int) error {
	if before.IsZero() {
		before = f.now()
	}

	// The archive's after is exclusive, the first request starts one second early so after itself is included.
	var cursor, lower int64
	if !after.IsZero() {
		lower = after.Unix()
		cursor = lower - 1
	}
	bound := before.Unix()
	size := min(pageSize, pushshift.MaxSize)

	// resume only moves once a page was handed over.
	var resume int64

	logger := f.logger.With("subreddit", filters.Subreddit, "before", bound, "page_size", size)
	logger.Debug("Fetching range", "state", stateInit, "after", lower)

	httpBudget := f.retry.Budget()
	emptyBudget := f.emptyRetry.Budget()

	for {
		started := time.Now()
		logger.Debug("Requesting page", "state", stateRequesting, "cursor", cursor)

		raw, err := f.search.SearchSubmissions(ctx, filters.query(size, cursor, bound))
		if err != nil {
			if !isTransient(err) {
				return err
			}
			if err := httpBudget.Fail(ctx, err); err != nil {
				return f.escalate(logger, ErrConnectivity, resume, err)
			}
			continue
		}
		httpBudget.Reset()

		submissions := f.parseSubmissions(logger, raw, lower)
		if len(submissions) == 0 {
			if err := emptyBudget.Fail(ctx, errEmptyPage); err != nil {
				return f.escalate(logger, ErrEmptyResult, resume, err)
			}
			continue
		}
		emptyBudget.Reset()

		page := Page{
			Submissions: submissions,
			Cursor:      created(submissions[len(submissions)-1].RawRecord),
		}
		page.Final = page.Cursor >= bound || len(raw) < size

		if f.withComments {
			page.Comments, err = f.attachComments(ctx, page.Submissions)
			if err != nil {
				return f.escalate(logger, ErrConnectivity, resume, err)
			}
		}

		logger.Info("Finished batch",
			"state", stateYielding, "submissions", len(submissions), "last", page.Cursor,
			"final", page.Final, "duration", time.Since(started))

		if !yield(page) {
			return ctx.Err()
		}
		pagesFetched.Inc()
		resume = page.Cursor

		if page.Final {
			logger.Debug("Range fetched", "state", stateDone, "cursor", page.Cursor)
			return nil
		}

		cursor, lower = page.Cursor, page.Cursor
	}
}

// FetchThread retrieves a single submission and all of its comments.
func (f *Fetcher) FetchThread(ctx context.Context, id string) (core.Submission, []core.Comment, error) {
	var raw []json.RawMessage

	err := f.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = f.search.SearchSubmissions(ctx, pushshift.Query{IDs: []string{id}, Size: 1})
		return err
	}, isTransient)
	if err != nil {
		return core.Submission{}, nil, f.lookupError(err)
	}

	submissions := f.parseSubmissions(f.logger, raw, 0)
	if len(submissions) == 0 {
		return core.Submission{}, nil, ErrNotFound
	}

	comments, err := f.attachComments(ctx, submissions[:1])
	if err != nil {
		return core.Submission{}, nil, f.lookupError(err)
	}

	return submissions[0], comments[submissions[0].ID()], nil
}

func (f *Fetcher) lookupError(err error) error {
	if errors.Is(err, retry.ErrLimitReached) {
		return &FatalError{Kind: ErrConnectivity, Err: err}
	}
	return err
}

// escalate turns an exhausted retry budget into a FatalError; other errors, such as cancellation, pass through.
func (f *Fetcher) escalate(logger *slog.Logger, kind error, resume int64, err error) error {
	if !errors.Is(err, retry.ErrLimitReached) {
		return err
	}

	logger.Error("Fetch aborted", "state", stateFatal, "kind", kind, "resume", resume, "error", err)
	return &FatalError{Kind: kind, Resume: resume, Err: err}
}

// parseSubmissions drops records that cannot be parsed, have no usable timestamp or are older than lower, then
// sorts the rest by creation time.
func (f *Fetcher) parseSubmissions(logger *slog.Logger, raw []json.RawMessage, lower int64) []core.Submission {
	submissions := make([]core.Submission, 0, len(raw))

	for _, data := range raw {
		record, ok := parseRecord(logger, data)
		if !ok {
			continue
		}

		if created(record) < lower {
			logger.Debug("Dropping record below the cursor", "id", record.ID(), "cursor", lower)
			continue
		}

		submissions = append(submissions, core.Submission{RawRecord: record})
	}

	slices.SortStableFunc(submissions, func(a, b core.Submission) int {
		return compareCreated(a.RawRecord, b.RawRecord)
	})

	recordsFetched.WithLabelValues("submission").Add(float64(len(submissions)))

	return submissions
}

func (f *Fetcher) attachComments(ctx context.Context, submissions []core.Submission) (map[string][]core.Comment, error) {
	out := make(map[string][]core.Comment, len(submissions))

	for i := range submissions {
		id := submissions[i].ID()

		var ids []string
		err := f.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			ids, err = f.search.SubmissionCommentIDs(ctx, id)
			return err
		}, isTransient)
		if err != nil {
			return nil, err
		}

		if ids == nil {
			ids = []string{}
		}
		submissions[i].CommentIDs = ids

		comments, err := f.lookupComments(ctx, ids)
		if err != nil {
			return nil, err
		}

		f.logger.Debug("Comments retrieved", "submission", id, "ids", len(ids), "comments", len(comments))
		out[id] = comments
	}

	return out, nil
}

func (f *Fetcher) lookupComments(ctx context.Context, ids []string) ([]core.Comment, error) {
	var comments []core.Comment

	for _, chunk := range lo.Chunk(ids, maxIDsPerLookup) {
		var raw []json.RawMessage
		err := f.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			raw, err = f.search.SearchComments(ctx, pushshift.Query{IDs: chunk, Size: len(chunk)})
			return err
		}, isTransient)
		if err != nil {
			return nil, err
		}

		for _, data := range raw {
			if record, ok := parseRecord(f.logger, data); ok {
				comments = append(comments, core.Comment{RawRecord: record})
			}
		}
	}

	slices.SortStableFunc(comments, func(a, b core.Comment) int {
		return compareCreated(a.RawRecord, b.RawRecord)
	})

	recordsFetched.WithLabelValues("comment").Add(float64(len(comments)))

	return comments, nil
}

func parseRecord(logger *slog.Logger, data json.RawMessage) (core.RawRecord, bool) {
	record, err := core.ParseRawRecord(data)
	if err != nil {
		logger.Warn("Skipping unparsable record", "error", err)
		return core.RawRecord{}, false
	}

	if _, err := record.Created(); err != nil {
		logger.Warn("Skipping record without timestamp", "id", record.ID(), "error", err)
		return core.RawRecord{}, false
	}

	return record, true
}

func created(r core.RawRecord) int64 {
	ts, _ := r.Created()
	return ts
}

func compareCreated(a, b core.RawRecord) int {
	ta, tb := created(a), created(b)
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	default:
		return 0
	}
}

// isTransient reports whether a failed request may succeed when repeated. Everything but cancellation is.
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
