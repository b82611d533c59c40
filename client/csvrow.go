// Package client holds the interactive client's logic: turning pasted CSV or
// manual input into a transaction and sending it to the prediction API.
package client

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"frauddetect/ml"
)

var ErrEmptyInput = errors.New("Empty input")

// CountMismatchError is returned when a cleaned row does not hold exactly
// ml.FeatureCount values.
type CountMismatchError struct {
	Found int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("CSV row must have %d values after cleaning (Time,V1..V28,Amount). Found %d values.", ml.FeatureCount, e.Found)
}

// ConversionError is returned when a token is not a finite number.
type ConversionError struct {
	Token string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("Could not convert values to float. Error: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// labelTokens are the trailing values treated as a Class column.
var labelTokens = map[string]bool{"0": true, "1": true, "0.0": true, "1.0": true}

// ParseCSVRow turns one pasted line (Time,V1..V28,Amount with an optional
// trailing 0/1 label) into a transaction. It has no side effects.
func ParseCSVRow(text string) (ml.Transaction, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return ml.Transaction{}, ErrEmptyInput
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)

	tokens := make([]string, 0, ml.FeatureCount+1)
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}

	if len(tokens) == ml.FeatureCount+1 && labelTokens[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) != ml.FeatureCount {
		return ml.Transaction{}, &CountMismatchError{Found: len(tokens)}
	}

	values := make([]float64, len(tokens))
	for i, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return ml.Transaction{}, &ConversionError{Token: token, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ml.Transaction{}, &ConversionError{Token: token, Err: fmt.Errorf("value %q is not a finite number", token)}
		}
		values[i] = v
	}
	return ml.TransactionFromValues(values)
}
