package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// File describes one written export.
type File struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
	Hash        string `json:"sha256,omitempty"`
}

// Exporter renders results and writes them through a blob store.
type Exporter struct {
	blobs  scanner.BlobStore
	format Format
	hasher scanner.Hasher
}

// NewExporter constructs an Exporter. The hasher is optional.
func NewExporter(blobs scanner.BlobStore, format Format, hasher scanner.Hasher) *Exporter {
	if format == "" {
		format = FormatBoth
	}
	return &Exporter{blobs: blobs, format: format, hasher: hasher}
}

// Format returns the configured format.
func (e *Exporter) Format() Format {
	return e.format
}

// Export writes <base>.csv and/or <base>.json.
func (e *Exporter) Export(ctx context.Context, base string, results []scanner.AnalyzedTarget) ([]File, error) {
	if e.blobs == nil {
		return nil, fmt.Errorf("export %s: no blob store configured", base)
	}
	var files []File
	if e.format.Tabular() {
		var buf bytes.Buffer
		if err := WriteTabular(&buf, results); err != nil {
			return files, err
		}
		f, err := e.put(ctx, base+".csv", ContentTypeCSV, buf.Bytes())
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	if e.format.Structured() {
		var buf bytes.Buffer
		if err := WriteStructured(&buf, results); err != nil {
			return files, err
		}
		f, err := e.put(ctx, base+".json", ContentTypeJSON, buf.Bytes())
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (e *Exporter) put(ctx context.Context, name, contentType string, data []byte) (File, error) {
	f := File{Name: name, ContentType: contentType, Bytes: len(data)}
	if e.hasher != nil {
		hash, err := e.hasher.Hash(data)
		if err != nil {
			return f, fmt.Errorf("hash %s: %w", name, err)
		}
		f.Hash = hash
	}
	uri, err := e.blobs.PutObject(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return f, fmt.Errorf("put %s: %w", name, err)
	}
	f.URI = uri
	return f, nil
}
