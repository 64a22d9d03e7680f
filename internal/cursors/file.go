package cursors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"threadlytics/internal/config"
)

// FileName is the cursor file kept in the output directory.
const FileName = "cursors.json"

// File is a CursorStore persisted as a JSON object in the output directory, so a later run can resume when NATS is
// not configured.
type File struct {
	Logger *slog.Logger
	Config *config.Config

	path string

	mu  sync.Mutex
	mem Memory
}

// NewFile returns a store backed by path; Init must still be called.
func NewFile(logger *slog.Logger, path string) *File {
	return &File{Logger: logger, path: path}
}

func (f *File) Init(_ context.Context) error {
	f.Logger = f.Logger.With("component", "cursors.File")

	if f.path == "" {
		f.path = filepath.Join(f.Config.OutputDir, FileName)
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	cursors := map[string]int64{}
	if err := json.Unmarshal(data, &cursors); err != nil {
		return fmt.Errorf("decoding %s: %w", f.path, err)
	}
	f.mem.cursors = cursors

	f.Logger.Debug("Cursors loaded", "path", f.path, "count", len(cursors))

	return nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context, key string) (int64, bool, error) {
	return f.mem.Load(ctx, key)
}

// Save updates the cursor and rewrites the file through a temporary file and a rename.
func (f *File) Save(ctx context.Context, key string, cursor int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.mem.Save(ctx, key, cursor); err != nil {
		return err
	}

	data, err := json.MarshalIndent(f.mem.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, f.path)
}
