package ml

import (
	"fmt"
	"math"
)

// FeatureCount is the number of named fields in a transaction record.
const FeatureCount = 30

const (
	TimeIndex   = 0
	AmountIndex = FeatureCount - 1
)

// Transaction is one credit-card transaction as seen by the classifier.
// The field set is fixed: Time, V1..V28, Amount.
type Transaction struct {
	Time   float64 `json:"Time"`
	V1     float64 `json:"V1"`
	V2     float64 `json:"V2"`
	V3     float64 `json:"V3"`
	V4     float64 `json:"V4"`
	V5     float64 `json:"V5"`
	V6     float64 `json:"V6"`
	V7     float64 `json:"V7"`
	V8     float64 `json:"V8"`
	V9     float64 `json:"V9"`
	V10    float64 `json:"V10"`
	V11    float64 `json:"V11"`
	V12    float64 `json:"V12"`
	V13    float64 `json:"V13"`
	V14    float64 `json:"V14"`
	V15    float64 `json:"V15"`
	V16    float64 `json:"V16"`
	V17    float64 `json:"V17"`
	V18    float64 `json:"V18"`
	V19    float64 `json:"V19"`
	V20    float64 `json:"V20"`
	V21    float64 `json:"V21"`
	V22    float64 `json:"V22"`
	V23    float64 `json:"V23"`
	V24    float64 `json:"V24"`
	V25    float64 `json:"V25"`
	V26    float64 `json:"V26"`
	V27    float64 `json:"V27"`
	V28    float64 `json:"V28"`
	Amount float64 `json:"Amount"`
}

var fieldNames = buildFieldNames()

func buildFieldNames() []string {
	names := make([]string, 0, FeatureCount)
	names = append(names, "Time")
	for i := 1; i <= 28; i++ {
		names = append(names, fmt.Sprintf("V%d", i))
	}
	return append(names, "Amount")
}

// FieldNames returns the field names in classifier input order.
func FieldNames() []string {
	return append([]string(nil), fieldNames...)
}

// FeatureVector flattens a transaction in FieldNames order.
func FeatureVector(tx Transaction) []float64 {
	return []float64{
		tx.Time,
		tx.V1, tx.V2, tx.V3, tx.V4, tx.V5, tx.V6, tx.V7,
		tx.V8, tx.V9, tx.V10, tx.V11, tx.V12, tx.V13, tx.V14,
		tx.V15, tx.V16, tx.V17, tx.V18, tx.V19, tx.V20, tx.V21,
		tx.V22, tx.V23, tx.V24, tx.V25, tx.V26, tx.V27, tx.V28,
		tx.Amount,
	}
}

// TransactionFromValues zips values with FieldNames.
func TransactionFromValues(values []float64) (Transaction, error) {
	if len(values) != FeatureCount {
		return Transaction{}, fmt.Errorf("expected %d values, got %d", FeatureCount, len(values))
	}
	v := values
	return Transaction{
		Time:   v[0],
		V1:     v[1],
		V2:     v[2],
		V3:     v[3],
		V4:     v[4],
		V5:     v[5],
		V6:     v[6],
		V7:     v[7],
		V8:     v[8],
		V9:     v[9],
		V10:    v[10],
		V11:    v[11],
		V12:    v[12],
		V13:    v[13],
		V14:    v[14],
		V15:    v[15],
		V16:    v[16],
		V17:    v[17],
		V18:    v[18],
		V19:    v[19],
		V20:    v[20],
		V21:    v[21],
		V22:    v[22],
		V23:    v[23],
		V24:    v[24],
		V25:    v[25],
		V26:    v[26],
		V27:    v[27],
		V28:    v[28],
		Amount: v[29],
	}, nil
}

// TransactionFromMap builds a transaction from named values. Names outside
// FieldNames are ignored and absent names read as zero.
func TransactionFromMap(values map[string]float64) Transaction {
	vector := make([]float64, FeatureCount)
	for i, name := range fieldNames {
		vector[i] = values[name]
	}
	tx, _ := TransactionFromValues(vector)
	return tx
}

// Map returns the transaction keyed by field name.
func (tx Transaction) Map() map[string]float64 {
	vector := FeatureVector(tx)
	out := make(map[string]float64, FeatureCount)
	for i, name := range fieldNames {
		out[name] = vector[i]
	}
	return out
}

// Finite reports whether every field is a finite number.
func (tx Transaction) Finite() bool {
	for _, v := range FeatureVector(tx) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
