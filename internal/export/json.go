package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"threadlytics/internal/core"
)

// JSONWriter streams normalized posts as one indented JSON array.
type JSONWriter struct {
	w       io.Writer
	written int
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// CreateJSONFile creates path, including missing directories, and returns a writer owning the file.
func CreateJSONFile(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return NewJSONWriter(f), nil
}

func (j *JSONWriter) Write(_ context.Context, thread core.Thread) error {
	data, err := json.MarshalIndent(thread.Post, "  ", "  ")
	if err != nil {
		return err
	}

	sep := ",\n  "
	if j.written == 0 {
		sep = "[\n  "
	}

	if _, err := io.WriteString(j.w, sep); err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}

	j.written++
	return nil
}

// Close terminates the array and closes the underlying writer when it is a Closer.
func (j *JSONWriter) Close() error {
	tail := "\n]\n"
	if j.written == 0 {
		tail = "[]\n"
	}

	_, err := io.WriteString(j.w, tail)

	if c, ok := j.w.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}

	return err
}

func (j *JSONWriter) Written() int {
	return j.written
}
