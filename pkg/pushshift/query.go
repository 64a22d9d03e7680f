package pushshift

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	SortTypeCreated = "created_utc"

	// MaxSize is the largest page the search endpoints return; bigger sizes are capped server side.
	MaxSize = 100
)

// Query holds the search filters understood by the search endpoints. Zero values are omitted.
//
// https://github.com/pushshift/api#search-parameters
type Query struct {
	Q           string
	QNot        string
	IDs         []string
	Title       string
	TitleNot    string
	Selftext    string
	SelftextNot string
	Size        int
	Fields      []string
	Sort        string
	SortType    string
	Aggs        string
	Author      string
	Subreddit   string
	// After and Before are unix seconds.
	After     int64
	Before    int64
	Score     string
	Frequency string
	Metadata  bool
}

func (q Query) Values() url.Values {
	v := url.Values{}

	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}

	set("q", q.Q)
	set("q:not", q.QNot)
	set("ids", strings.Join(q.IDs, ","))
	set("title", q.Title)
	set("title:not", q.TitleNot)
	set("selftext", q.Selftext)
	set("selftext:not", q.SelftextNot)
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	set("fields", strings.Join(q.Fields, ","))
	set("sort", q.Sort)
	set("sort_type", q.SortType)
	set("aggs", q.Aggs)
	set("author", q.Author)
	set("subreddit", q.Subreddit)
	if q.After > 0 {
		v.Set("after", strconv.FormatInt(q.After, 10))
	}
	if q.Before > 0 {
		v.Set("before", strconv.FormatInt(q.Before, 10))
	}
	set("score", q.Score)
	set("frequency", q.Frequency)
	if q.Metadata {
		v.Set("metadata", "true")
	}

	return v
}
