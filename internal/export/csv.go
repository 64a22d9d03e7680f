package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"threadlytics/internal/core"
)

const annotationCategories = 5

// AnnotationHeader is the header of the coding sheet: the entity id followed by one stigma and one challenge
// column per category.
var AnnotationHeader = append(append([]string{"ID"},
	lo.Times(annotationCategories, func(i int) string { return fmt.Sprintf("Stig_c%d", i+1) })...),
	lo.Times(annotationCategories, func(i int) string { return fmt.Sprintf("Challn_c%d", i+1) })...)

// CSVFiles are the destinations of a CSVWriter. Annotations may be nil.
type CSVFiles struct {
	Submissions io.Writer
	Comments    io.Writer
	Annotations io.Writer
}

// CSVWriter writes submissions and comments as rows with fixed columns. Every row is flushed as soon as it is
// written.
type CSVWriter struct {
	logger *slog.Logger
	layout string

	submissions *csv.Writer
	comments    *csv.Writer
	annotations *csv.Writer

	closers []io.Closer
}

// NewCSVWriter writes the headers of every file.
func NewCSVWriter(logger *slog.Logger, files CSVFiles) (*CSVWriter, error) {
	w := &CSVWriter{
		logger:      logger.With("component", "export.CSVWriter"),
		layout:      core.DateLayout,
		submissions: csv.NewWriter(files.Submissions),
		comments:    csv.NewWriter(files.Comments),
	}

	for _, f := range []io.Writer{files.Submissions, files.Comments, files.Annotations} {
		if c, ok := f.(io.Closer); ok {
			w.closers = append(w.closers, c)
		}
	}

	err := errors.Join(
		writeRow(w.submissions, core.Submission{}.CSVFields()),
		writeRow(w.comments, core.Comment{}.CSVFields()),
	)

	if files.Annotations != nil {
		w.annotations = csv.NewWriter(files.Annotations)
		err = errors.Join(err, writeRow(w.annotations, AnnotationHeader))
	}

	if err != nil {
		return nil, errors.Join(err, w.close())
	}

	return w, nil
}

// CreateCSVFiles creates <prefix>-submissions.csv, <prefix>-comments.csv and, when annotations is set,
// <prefix>-annotations.csv in dir.
func CreateCSVFiles(logger *slog.Logger, dir, prefix string, annotations bool) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	names := []string{"submissions", "comments"}
	if annotations {
		names = append(names, "annotations")
	}

	created := make([]*os.File, 0, len(names))
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s-%s.csv", prefix, name)))
		if err != nil {
			return nil, errors.Join(err, closeAll(created))
		}
		created = append(created, f)
	}

	files := CSVFiles{Submissions: created[0], Comments: created[1]}
	if annotations {
		files.Annotations = created[2]
	}

	return NewCSVWriter(logger, files)
}

func (w *CSVWriter) Write(_ context.Context, thread core.Thread) error {
	row, err := thread.Submission.CSVRow(w.layout)
	if err != nil {
		w.logger.Warn("Keeping raw timestamp", "id", thread.Submission.ID(), "error", err)
	}

	if err := writeRow(w.submissions, row); err != nil {
		return err
	}

	if err := w.annotate("Submission", thread.Submission.ID()); err != nil {
		return err
	}

	for _, c := range thread.Comments {
		row, err := c.CSVRow(w.layout)
		if err != nil {
			w.logger.Warn("Keeping raw timestamp", "id", c.ID(), "error", err)
		}

		if err := writeRow(w.comments, row); err != nil {
			return err
		}

		if err := w.annotate("Comment", c.ID()); err != nil {
			return err
		}
	}

	return nil
}

func (w *CSVWriter) annotate(kind, id string) error {
	if w.annotations == nil {
		return nil
	}

	row := make([]string, len(AnnotationHeader))
	row[0] = kind + " " + id

	return writeRow(w.annotations, row)
}

func (w *CSVWriter) Close() error {
	return w.close()
}

func (w *CSVWriter) close() error {
	var errs []error

	for _, cw := range []*csv.Writer{w.submissions, w.comments, w.annotations} {
		if cw == nil {
			continue
		}
		cw.Flush()
		errs = append(errs, cw.Error())
	}

	return errors.Join(append(errs, closeAll(w.closers))...)
}

func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func closeAll[T io.Closer](closers []T) error {
	return errors.Join(lo.Map(closers, func(c T, _ int) error { return c.Close() })...)
}
