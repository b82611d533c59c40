package client

import (
	"math"
	"strings"

	"frauddetect/ml"
)

// Source names where a resolved record came from.
type Source string

const (
	SourceCSV    Source = "csv"
	SourceManual Source = "manual"
)

// PreviewFields is how many leading fields a successful parse shows.
const PreviewFields = 5

// Resolution is the record the next prediction will use.
type Resolution struct {
	Record ml.Transaction
	Source Source
	// ParseErr is the paste box failure, if any. It is kept even though the
	// manual fields were used instead.
	ParseErr error
}

// Pasted reports whether the record came from the paste box.
func (r Resolution) Pasted() bool { return r.Source == SourceCSV }

// Resolve picks the pasted row when it parses and falls back to manual.
func Resolve(pasted string, manual ml.Transaction) Resolution {
	if strings.TrimSpace(pasted) == "" {
		return Resolution{Record: manual, Source: SourceManual}
	}
	tx, err := ParseCSVRow(pasted)
	if err != nil {
		return Resolution{Record: manual, Source: SourceManual, ParseErr: err}
	}
	return Resolution{Record: tx, Source: SourceCSV}
}

// Preview returns the first n fields of tx in field order.
func Preview(tx ml.Transaction, n int) []Field {
	vector := ml.FeatureVector(tx)
	names := ml.FieldNames()
	n = max(0, min(n, len(names)))
	fields := make([]Field, n)
	for i := range fields {
		fields[i] = Field{Name: names[i], Value: vector[i]}
	}
	return fields
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
