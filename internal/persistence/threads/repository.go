package threads

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"threadlytics/internal/core"
)

// Repository upserts threads into the threads table. Every process run gets its own run id.
type Repository struct {
	Logger *slog.Logger
	DB     core.DB

	runID string
}

func (r *Repository) Init(_ context.Context) error {
	r.runID = uuid.NewString()
	r.Logger = r.Logger.With("component", "threads.Repository", "run_id", r.runID)
	return nil
}

func (r *Repository) Write(ctx context.Context, thread core.Thread) error {
	model := core.NewThreadModel(thread, r.runID, time.Now())

	err := r.DB.
		Model(&core.ThreadModel{}).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	if err != nil {
		return err
	}

	r.Logger.Debug("Thread stored", "id", model.ID, "comments", model.Comments)
	return nil
}

// Close is a no-op, the connection belongs to DB.
func (r *Repository) Close() error {
	return nil
}

func (r *Repository) RunID() string {
	return r.runID
}
