// Package extract pulls configured fields out of MultiQC report files and
// merges them into one record per sample.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"hostmetrics/internal/config"
	"hostmetrics/internal/yamltree"

	"go.uber.org/zap"
)

// Fields maps output label to extracted value for one sample.
type Fields map[string]yamltree.Value

// Metrics maps sample name to its extracted fields.
type Metrics map[string]Fields

// Samples returns the sample names in ascending byte order.
func (m Metrics) Samples() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source is a loaded report file together with the fields to extract from it.
type Source struct {
	Path   string
	Fields []config.FieldMapping
	Docs   []yamltree.Document
}

// Extractor loads report files and merges their fields.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor. A nil logger discards output.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Resolve joins dir with each configured file name and drops the files that
// do not exist, logging a warning for each.
func (e *Extractor) Resolve(dir string, files []config.FileFields) ([]Source, error) {
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.File)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e.logger.Warn("File does not exist", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		sources = append(sources, Source{Path: path, Fields: f.Fields})
	}
	return sources, nil
}

// Load resolves and parses every configured file. Files are read one at a
// time; a parse failure stops the load.
func (e *Extractor) Load(dir string, files []config.FileFields) ([]Source, error) {
	sources, err := e.Resolve(dir, files)
	if err != nil {
		return nil, err
	}
	for i := range sources {
		docs, err := yamltree.LoadFile(sources[i].Path)
		if err != nil {
			return nil, err
		}
		sources[i].Docs = docs
		e.logger.Debug("Loaded report",
			zap.String("path", sources[i].Path),
			zap.Int("documents", len(docs)))
	}
	return sources, nil
}

// Merge extracts the configured fields of every source into a fresh Metrics.
// Sources are applied in order; a label already set for a sample is
// overwritten with a warning.
func (e *Extractor) Merge(sources []Source) Metrics {
	m := make(Metrics)
	for _, src := range sources {
		for _, doc := range src.Docs {
			e.mergeDocument(m, doc, src.Fields)
		}
	}
	return m
}

func (e *Extractor) mergeDocument(m Metrics, doc yamltree.Document, mappings []config.FieldMapping) {
	for _, entry := range doc.Samples() {
		fields, ok := m[entry.Sample]
		if !ok {
			fields = make(Fields)
			m[entry.Sample] = fields
		}
		for _, fm := range mappings {
			n, ok := yamltree.FindPath(entry.Node, fm.Path)
			if !ok {
				e.logger.Debug("Field not found",
					zap.String("sample", entry.Sample),
					zap.String("label", fm.Label),
					zap.Strings("path", fm.Path))
				continue
			}
			if _, exists := fields[fm.Label]; exists {
				e.logger.Warn("Field already set for sample, overwriting",
					zap.String("label", fm.Label),
					zap.String("sample", entry.Sample),
					zap.String("file", doc.Path))
			}
			fields[fm.Label] = yamltree.ValueOf(n)
		}
	}
}
