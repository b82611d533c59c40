package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"frauddetect/ml"
)

// FieldsPerRow is how many manual inputs share one display row.
const FieldsPerRow = 5

// Field is one named manual input.
type Field struct {
	Name  string
	Value float64
}

// Text renders the value the way the form shows it.
func (f Field) Text() string { return FormatValue(f.Value) }

// ManualForm holds the 30 manual inputs, all 0.0 until set.
type ManualForm struct {
	values []float64
}

func NewManualForm() *ManualForm {
	return &ManualForm{values: make([]float64, ml.FeatureCount)}
}

// ManualFormFrom seeds the form with an existing record.
func ManualFormFrom(tx ml.Transaction) *ManualForm {
	return &ManualForm{values: ml.FeatureVector(tx)}
}

// FromValues reads the form fields by name. Blank or absent fields stay 0.0;
// anything else must be a finite number.
func FromValues(values url.Values) (*ManualForm, error) {
	form := NewManualForm()
	for i, name := range ml.FieldNames() {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return form, fmt.Errorf("field %s: %q is not a number", name, raw)
		}
		if !finite(v) {
			return form, fmt.Errorf("field %s: %q is not a finite number", name, raw)
		}
		form.values[i] = v
	}
	return form, nil
}

// Set updates one field by name.
func (f *ManualForm) Set(name string, value float64) error {
	for i, n := range ml.FieldNames() {
		if n == name {
			f.values[i] = value
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", name)
}

func (f *ManualForm) Fields() []Field {
	names := ml.FieldNames()
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Value: f.values[i]}
	}
	return fields
}

// Groups splits the fields into display rows of n. The last row may be short.
func (f *ManualForm) Groups(n int) [][]Field {
	if n <= 0 {
		n = FieldsPerRow
	}
	fields := f.Fields()
	groups := make([][]Field, 0, (len(fields)+n-1)/n)
	for start := 0; start < len(fields); start += n {
		end := min(start+n, len(fields))
		groups = append(groups, fields[start:end])
	}
	return groups
}

func (f *ManualForm) Transaction() ml.Transaction {
	tx, _ := ml.TransactionFromValues(f.values)
	return tx
}

// FormatValue prints a float with six decimals, as the manual inputs do.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
