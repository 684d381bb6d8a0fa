// Package export renders the city list as JSON and CSV artifacts and stores
// them in a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"time"

	"citydesk/internal/blob"
	"citydesk/pkg/domain"

	"github.com/google/uuid"
)

// Format identifies an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

const (
	defaultPrefix   = "exports"
	timestampLayout = "20060102T150405Z"
)

var csvHeader = []string{"cidade_id", "cidade_nome", "comercio_id", "comercio_nome", "responsavel", "tipo"}

// Artifact describes one stored export file.
type Artifact struct {
	Format Format
	Rows   int
	Info   blob.Info
}

// Result lists the artifacts written by a single export run.
type Result struct {
	Artifacts []Artifact
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix sets the key prefix artifacts are written under.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithClock overrides the time source used to name artifacts.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunID overrides the generator for the per-run key suffix.
func WithRunID(next func() string) Option {
	return func(e *Exporter) {
		if next != nil {
			e.runID = next
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFormats restricts the rendered formats.
func WithFormats(formats ...Format) Option {
	return func(e *Exporter) {
		if len(formats) > 0 {
			e.formats = append([]Format(nil), formats...)
		}
	}
}

// Exporter writes city list snapshots to a blob store.
type Exporter struct {
	store   blob.Store
	prefix  string
	formats []Format
	now     func() time.Time
	runID   func() string
	logger  *slog.Logger
}

// New constructs an exporter writing to store.
func New(store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		store:   store,
		prefix:  defaultPrefix,
		formats: []Format{FormatJSON, FormatCSV},
		now:     func() time.Time { return time.Now().UTC() },
		runID:   shortRunID,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders cities in every configured format and stores each artifact
// under <prefix>/cidades-<timestamp>-<run>.<format>, where run is unique per
// call so two exports within the same second never collide. Artifacts already
// written stay in place when a later format fails.
func (e *Exporter) Export(ctx context.Context, cities []domain.City) (Result, error) {
	stamp := e.now().UTC().Format(timestampLayout) + "-" + e.runID()
	var result Result
	for _, format := range e.formats {
		payload, contentType, rows, err := render(format, cities)
		if err != nil {
			return result, err
		}
		key := path.Join(e.prefix, fmt.Sprintf("cidades-%s.%s", stamp, format))
		info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata: map[string]string{
				"rows":   strconv.Itoa(rows),
				"format": string(format),
			},
		})
		if err != nil {
			return result, fmt.Errorf("store %s: %w", key, err)
		}
		e.logger.Info("export written", "key", info.Key, "format", format, "rows", rows, "size", info.Size)
		result.Artifacts = append(result.Artifacts, Artifact{Format: format, Rows: rows, Info: info})
	}
	return result, nil
}

func shortRunID() string {
	return uuid.NewString()[:8]
}

// List returns the artifacts stored under the exporter prefix.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	return e.store.List(ctx, e.prefix+"/")
}

func render(format Format, cities []domain.City) ([]byte, string, int, error) {
	switch format {
	case FormatJSON:
		if cities == nil {
			cities = []domain.City{}
		}
		payload, err := json.Marshal(cities)
		if err != nil {
			return nil, "", 0, fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", len(cities), nil
	case FormatCSV:
		payload, rows, err := renderCSV(cities)
		if err != nil {
			return nil, "", 0, err
		}
		return payload, "text/csv", rows, nil
	default:
		return nil, "", 0, fmt.Errorf("unsupported export format %s", format)
	}
}

// renderCSV writes one row per commerce; a city without commerces still gets
// a row with the commerce columns left empty.
func renderCSV(cities []domain.City) ([]byte, int, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, 0, err
	}
	rows := 0
	for _, city := range cities {
		cityID := strconv.FormatInt(city.ID, 10)
		if len(city.Commerces) == 0 {
			if err := writer.Write([]string{cityID, city.Name, "", "", "", ""}); err != nil {
				return nil, 0, err
			}
			rows++
			continue
		}
		for _, c := range city.Commerces {
			record := []string{cityID, city.Name, strconv.FormatInt(c.ID, 10), c.Name, c.Responsible, string(c.Type)}
			if err := writer.Write(record); err != nil {
				return nil, 0, err
			}
			rows++
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), rows, nil
}
