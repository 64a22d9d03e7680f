package core

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type DB interface {
	Model(a any) *gorm.DB
	DB() (*sql.DB, error)
}

// ThreadModel is the stored form of a thread: a few queryable columns plus the whole normalized post.
type ThreadModel struct {
	ID         string `gorm:"primaryKey"`
	Subreddit  string `gorm:"index"`
	Author     string
	Title      string
	CreatedUTC int64 `gorm:"index"`
	Score      int
	Comments   int

	Post NormalizedPost `gorm:"serializer:json;type:jsonb"`

	RunID     string `gorm:"index"`
	ScrapedAt time.Time
}

func (ThreadModel) TableName() string {
	return "threads"
}

func NewThreadModel(thread Thread, runID string, scrapedAt time.Time) ThreadModel {
	post := thread.Post

	return ThreadModel{
		ID:         post.ID,
		Subreddit:  post.Subreddit,
		Author:     post.Author,
		Title:      post.Title,
		CreatedUTC: post.CreatedUTC,
		Score:      post.Score,
		Comments:   post.Size(),
		Post:       post,
		RunID:      runID,
		ScrapedAt:  scrapedAt.UTC(),
	}
}
