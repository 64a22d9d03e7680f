package thread

import (
	"threadlytics/internal/core"
)

// Build relates the flat comments of a submission through their parent references and returns the submission
// with its comment forest. Children keep their input order. Comments whose parent chain does not lead to the
// submission are left out and counted in dropped, as are repeated ids.
func Build(post core.Submission, related []core.Comment) (core.NormalizedPost, int) {
	children := make(map[string][]core.Comment, len(related))
	for _, c := range related {
		parent := c.ParentID()
		children[parent] = append(children[parent], c)
	}

	b := builder{
		postID:   post.ID(),
		children: children,
		attached: make(map[string]bool, len(related)),
	}

	created, _ := post.Created()

	normalized := core.NormalizedPost{
		ID:         post.ID(),
		Title:      post.Title(),
		Text:       post.Selftext(),
		Author:     post.Author(),
		Subreddit:  post.Subreddit(),
		CreatedUTC: created,
		Score:      post.Score(),
		Comments:   b.replies(post.ID()),
	}

	return normalized, len(related) - len(b.attached)
}

type builder struct {
	postID   string
	children map[string][]core.Comment
	attached map[string]bool
}

func (b *builder) replies(parent string) []core.CommentNode {
	nodes := make([]core.CommentNode, 0, len(b.children[parent]))

	for _, c := range b.children[parent] {
		id := c.ID()
		if b.attached[id] {
			continue
		}
		b.attached[id] = true

		created, _ := c.Created()

		nodes = append(nodes, core.CommentNode{
			ID:          id,
			Author:      c.Author(),
			Body:        c.Body(),
			IsSubmitter: c.IsSubmitter(),
			PostID:      b.postID,
			ParentID:    parent,
			Score:       c.Score(),
			CreatedUTC:  created,
			Replies:     b.replies(id),
		})
	}

	return nodes
}
