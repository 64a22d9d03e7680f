package pushshift

import (
	"context"
	"encoding/json"
)

const (
	searchSubmission     = "/search/submission"
	searchComment        = "/search/comment"
	submissionCommentIDs = "/submission/comment_ids/"
)

type searchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type idsResponse struct {
	Data []string `json:"data"`
}

// SearchSubmissions returns the matching submissions as raw JSON objects, in the order the API sent them.
func (c *Client) SearchSubmissions(ctx context.Context, q Query) ([]json.RawMessage, error) {
	return c.search(ctx, searchSubmission, q)
}

// SearchComments returns the matching comments as raw JSON objects.
func (c *Client) SearchComments(ctx context.Context, q Query) ([]json.RawMessage, error) {
	return c.search(ctx, searchComment, q)
}

// SubmissionCommentIDs returns the ids of every comment of the given submission, at any depth.
func (c *Client) SubmissionCommentIDs(ctx context.Context, submissionID string) ([]string, error) {
	res, err := c.r(ctx).
		SetResult(&idsResponse{}).
		Get(submissionCommentIDs + submissionID)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	return res.Result().(*idsResponse).Data, nil
}

func (c *Client) search(ctx context.Context, path string, q Query) ([]json.RawMessage, error) {
	res, err := c.r(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetResult(&searchResponse{}).
		Get(path)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	return res.Result().(*searchResponse).Data, nil
}
