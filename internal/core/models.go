package core

import (
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// DateLayout is used for created_utc in CSV exports.
const DateLayout = "2006-01-02T15:04:05MST"

var (
	submissionFields = []string{
		"created_utc", "id", "score", "author", "title", "full_link", "comments", "selftext",
	}
	commentFields = []string{
		"created_utc", "id", "score", "author", "is_submitter", "parent_id", "link_id", "body",
	}
)

// Submission is a top-level post.
type Submission struct {
	RawRecord

	// CommentIDs holds the ids of all comments of the thread; nil when comments were not retrieved.
	CommentIDs []string
}

func (s Submission) Title() string {
	return s.Text("title")
}

func (s Submission) Selftext() string {
	return s.Text("selftext")
}

func (s Submission) Subreddit() string {
	return s.Text("subreddit")
}

func (Submission) CSVFields() []string {
	return slices.Clone(submissionFields)
}

// CSVRow renders the submission in CSVFields order. A malformed timestamp is reported through the error while the
// row is still complete, holding the raw value.
func (s Submission) CSVRow(layout string) ([]string, error) {
	return csvRow(s.RawRecord, submissionFields, layout, func(field string) (string, bool) {
		if field != "comments" {
			return "", false
		}
		if s.CommentIDs == nil {
			return "", true
		}
		b, _ := json.Marshal(s.CommentIDs)
		return string(b), true
	})
}

// Comment is a reply to a submission or to another comment.
type Comment struct {
	RawRecord
}

func (c Comment) Body() string {
	return c.Text("body")
}

func (c Comment) IsSubmitter() bool {
	return c.Bool("is_submitter")
}

// ParentID is the bare id of the parent submission or comment.
func (c Comment) ParentID() string {
	return StripKind(c.Text("parent_id"))
}

// LinkID is the bare id of the submission the comment belongs to.
func (c Comment) LinkID() string {
	return StripKind(c.Text("link_id"))
}

func (Comment) CSVFields() []string {
	return slices.Clone(commentFields)
}

func (c Comment) CSVRow(layout string) ([]string, error) {
	return csvRow(c.RawRecord, commentFields, layout, func(field string) (string, bool) {
		if field != "parent_id" || !c.Has("parent_id") {
			return "", false
		}
		return c.ParentID(), true
	})
}

func csvRow(r RawRecord, fields []string, layout string, special func(string) (string, bool)) ([]string, error) {
	var errs []error

	row := make([]string, len(fields))
	for i, field := range fields {
		if v, ok := special(field); ok {
			row[i] = v
			continue
		}

		if field == FieldCreatedUTC && layout != "" && r.Has(field) {
			created, err := r.Created()
			if err != nil {
				errs = append(errs, err)
				row[i] = r.Cell(field)
				continue
			}
			row[i] = time.Unix(created, 0).UTC().Format(layout)
			continue
		}

		row[i] = r.Cell(field)
	}

	return row, errors.Join(errs...)
}

// CommentNode is a comment with its direct replies.
type CommentNode struct {
	ID          string        `json:"id"`
	Author      string        `json:"author"`
	Body        string        `json:"body"`
	IsSubmitter bool          `json:"is_submitter"`
	PostID      string        `json:"post_id"`
	ParentID    string        `json:"parent_id"`
	Score       int           `json:"score"`
	CreatedUTC  int64         `json:"created_utc"`
	Replies     []CommentNode `json:"replies"`
}

// NormalizedPost is a submission with its comment forest; Comments holds only the top-level replies.
type NormalizedPost struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Text       string        `json:"text"`
	Author     string        `json:"author"`
	Subreddit  string        `json:"subreddit"`
	CreatedUTC int64         `json:"created_utc"`
	Score      int           `json:"score"`
	Comments   []CommentNode `json:"comments"`
}

// Size returns the number of comments in the forest.
func (p NormalizedPost) Size() int {
	var count func([]CommentNode) int
	count = func(nodes []CommentNode) int {
		n := len(nodes)
		for _, node := range nodes {
			n += count(node.Replies)
		}
		return n
	}
	return count(p.Comments)
}

// Thread is the unit handed to sinks: the raw submission and comments plus the rebuilt tree.
type Thread struct {
	Submission Submission
	Comments   []Comment
	Post       NormalizedPost
}
