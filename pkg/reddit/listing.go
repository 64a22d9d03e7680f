package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Jeffail/gabs"
)

const (
	kindComment = "t1"
	kindLink    = "t3"
	kindMore    = "more"

	pageLimit = 100
)

var ErrMalformedListing = errors.New("malformed listing")

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type created struct {
	CreatedUTC float64 `json:"created_utc"`
}

// New lists the newest posts of subreddit, newest first, until limit is reached or the listing ends.
func (c *Client) New(ctx context.Context, subreddit string, limit Limit) ([]json.RawMessage, error) {
	if err := limit.Validate(); err != nil {
		return nil, err
	}

	now := c.config.Now()

	var (
		posts []json.RawMessage
		after string
	)

	for {
		page, err := c.listing(ctx, subreddit, after)
		if err != nil {
			return nil, err
		}

		for _, child := range page.Data.Children {
			if child.Kind != kindLink {
				continue
			}

			var ts created
			if err := json.Unmarshal(child.Data, &ts); err != nil {
				return nil, err
			}

			if limit.done(len(posts), time.Unix(int64(ts.CreatedUTC), 0), now) {
				return posts, nil
			}

			posts = append(posts, child.Data)
		}

		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			return posts, nil
		}
	}
}

func (c *Client) listing(ctx context.Context, subreddit, after string) (*listing, error) {
	req, err := c.r(ctx)
	if err != nil {
		return nil, err
	}

	req.SetPathParam("subreddit", subreddit).
		SetQueryParam("limit", strconv.Itoa(pageLimit)).
		SetResult(&listing{})
	if after != "" {
		req.SetQueryParam("after", after)
	}

	res, err := req.Get("/r/{subreddit}/new")
	if err != nil {
		return nil, err
	}

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	return res.Result().(*listing), nil
}

// Comments returns every comment of the submission with the given id, flattened in depth-first order and without
// their nested replies. more reports how many "load more" placeholders were skipped.
func (c *Client) Comments(ctx context.Context, id string) (comments []json.RawMessage, more int, err error) {
	req, err := c.r(ctx)
	if err != nil {
		return nil, 0, err
	}

	res, err := req.
		SetPathParam("id", id).
		SetResult(&[]json.RawMessage{}).
		Get("/comments/{id}")
	if err != nil {
		return nil, 0, err
	}

	if err := checkStatus(res); err != nil {
		return nil, 0, err
	}

	listings := *res.Result().(*[]json.RawMessage)
	if len(listings) < 2 {
		return nil, 0, fmt.Errorf("%w: comments of %s", ErrMalformedListing, id)
	}

	root, err := gabs.ParseJSON(listings[1])
	if err != nil {
		return nil, 0, err
	}

	f := &flattener{}
	if err := f.walk(root); err != nil {
		return nil, 0, err
	}

	return f.comments, f.more, nil
}

type flattener struct {
	comments []json.RawMessage
	more     int
}

func (f *flattener) walk(l *gabs.Container) error {
	if !l.ExistsP("data.children") {
		return nil
	}

	children, err := l.Path("data.children").Children()
	if err != nil {
		return err
	}

	for _, child := range children {
		kind, _ := child.Path("kind").Data().(string)

		switch kind {
		case kindComment:
			data := child.Path("data")
			replies := data.Path("replies")

			if data.Exists("replies") {
				if err := data.Delete("replies"); err != nil {
					return err
				}
			}
			f.comments = append(f.comments, data.Bytes())

			// An empty reply list is sent as "".
			if _, ok := replies.Data().(map[string]interface{}); ok {
				if err := f.walk(replies); err != nil {
					return err
				}
			}
		case kindMore:
			f.more++
		}
	}

	return nil
}
