// Package dataset reads transaction rows out of the historical CSV dump.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"frauddetect/ml"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultPath      = "data/creditcard.csv"
	LabelColumn      = "Class"
	defaultCacheSize = 128
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrRowOutOfRange   = errors.New("row index out of range")
	ErrMissingColumn   = errors.New("dataset is missing a required column")
)

// RowRangeError reports an index outside the data rows.
type RowRangeError struct {
	Index int
	Rows  int
}

func (e *RowRangeError) Error() string {
	if e.Rows < 0 {
		return fmt.Sprintf("row %d out of bounds: index must be non-negative", e.Index)
	}
	return fmt.Sprintf("row %d out of bounds for dataset with %d rows", e.Index, e.Rows)
}

func (e *RowRangeError) Unwrap() error { return ErrRowOutOfRange }

// Reader looks rows up by position. Columns are matched by header name, and
// the label column is ignored when present.
type Reader struct {
	path      string
	columns   []int // file column for each ml.FieldNames entry
	hasLabel  bool
	cacheSize int
	cache     *lru.Cache[int, ml.Transaction]
}

type Option func(*Reader)

// WithCacheSize bounds the number of parsed rows kept in memory.
func WithCacheSize(size int) Option {
	return func(r *Reader) { r.cacheSize = size }
}

// Open checks the file and its header. Rows are read on demand.
func Open(path string, opts ...Option) (*Reader, error) {
	r := &Reader{path: path, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize <= 0 {
		r.cacheSize = defaultCacheSize
	}
	cache, err := lru.New[int, ml.Transaction](r.cacheSize)
	if err != nil {
		return nil, err
	}
	r.cache = cache

	f, records, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := records.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty dataset", path)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	if err := r.mapColumns(header); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) Path() string { return r.path }

// HasLabel reports whether the file carries the Class column.
func (r *Reader) HasLabel() bool { return r.hasLabel }

// Row returns the data row at index (0 is the first row after the header).
func (r *Reader) Row(index int) (ml.Transaction, error) {
	if tx, ok := r.cache.Get(index); ok {
		return tx, nil
	}
	if index < 0 {
		return ml.Transaction{}, &RowRangeError{Index: index, Rows: -1}
	}

	f, records, err := r.open()
	if err != nil {
		return ml.Transaction{}, err
	}
	defer f.Close()

	if _, err := records.Read(); err != nil {
		return ml.Transaction{}, fmt.Errorf("%s: read header: %w", r.path, err)
	}
	for rows := 0; ; rows++ {
		record, err := records.Read()
		if err == io.EOF {
			return ml.Transaction{}, &RowRangeError{Index: index, Rows: rows}
		}
		if err != nil {
			return ml.Transaction{}, fmt.Errorf("%s: row %d: %w", r.path, rows, err)
		}
		if rows != index {
			continue
		}
		tx, err := r.parse(record)
		if err != nil {
			return ml.Transaction{}, fmt.Errorf("%s: row %d: %w", r.path, index, err)
		}
		r.cache.Add(index, tx)
		return tx, nil
	}
}

// RawLine renders the row as a comma separated line in field order, without
// the label.
func (r *Reader) RawLine(index int) (string, error) {
	tx, err := r.Row(index)
	if err != nil {
		return "", err
	}
	return FormatLine(tx), nil
}

// FormatLine joins the transaction's values in field order.
func FormatLine(tx ml.Transaction) string {
	vector := ml.FeatureVector(tx)
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (r *Reader) open() (*os.File, *csv.Reader, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %w", ErrDatasetNotFound, err)
		}
		return nil, nil, fmt.Errorf("open dataset: %w", err)
	}
	// spreadsheet exports often carry a UTF-8 or UTF-16 BOM
	decoded := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	records := csv.NewReader(decoded)
	records.ReuseRecord = true
	records.TrimLeadingSpace = true
	return f, records, nil
}

func (r *Reader) mapColumns(header []string) error {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(name)] = i
	}
	names := ml.FieldNames()
	r.columns = make([]int, len(names))
	var missing []string
	for i, name := range names {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		r.columns[i] = pos
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	_, r.hasLabel = positions[LabelColumn]
	return nil
}

func (r *Reader) parse(record []string) (ml.Transaction, error) {
	names := ml.FieldNames()
	values := make([]float64, len(names))
	for i, col := range r.columns {
		if col >= len(record) {
			return ml.Transaction{}, fmt.Errorf("column %s: missing value", names[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return ml.Transaction{}, fmt.Errorf("column %s: %w", names[i], err)
		}
		values[i] = v
	}
	return ml.TransactionFromValues(values)
}
