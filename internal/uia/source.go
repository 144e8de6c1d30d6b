// File: internal/uia/source.go
package uia

import (
	"context"
	"fmt"
	"os"

	"github.com/beevik/etree"
)

// FileSource reads the accessibility snapshot from a file on every call, so
// an external process can refresh it between steps.
type FileSource struct {
	path string
}

// NewFileSource points the snapshot source at an XML file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Snapshot(ctx context.Context, scope Scope) (*etree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing snapshot XML: %w", err)
	}
	return doc, nil
}

// StaticSource serves a fixed XML document. Used in tests and scripted runs.
type StaticSource struct {
	doc *etree.Document
}

// NewStaticSource parses xml once and serves it forever.
func NewStaticSource(xml string) (*StaticSource, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil, fmt.Errorf("parsing snapshot XML: %w", err)
	}
	return &StaticSource{doc: doc}, nil
}

func (s *StaticSource) Snapshot(ctx context.Context, scope Scope) (*etree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.doc, nil
}
