package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"frauddetect/ml"

	"github.com/go-playground/validator/v10"
)

// ValidationDetail mirrors the error entries FastAPI-style clients expect.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationResponse struct {
	Detail []ValidationDetail `json:"detail"`
}

// transactionPayload exists only to tell absent or null fields apart from
// zeros before the body becomes an ml.Transaction.
type transactionPayload struct {
	Time   *float64 `json:"Time" validate:"required"`
	V1     *float64 `json:"V1" validate:"required"`
	V2     *float64 `json:"V2" validate:"required"`
	V3     *float64 `json:"V3" validate:"required"`
	V4     *float64 `json:"V4" validate:"required"`
	V5     *float64 `json:"V5" validate:"required"`
	V6     *float64 `json:"V6" validate:"required"`
	V7     *float64 `json:"V7" validate:"required"`
	V8     *float64 `json:"V8" validate:"required"`
	V9     *float64 `json:"V9" validate:"required"`
	V10    *float64 `json:"V10" validate:"required"`
	V11    *float64 `json:"V11" validate:"required"`
	V12    *float64 `json:"V12" validate:"required"`
	V13    *float64 `json:"V13" validate:"required"`
	V14    *float64 `json:"V14" validate:"required"`
	V15    *float64 `json:"V15" validate:"required"`
	V16    *float64 `json:"V16" validate:"required"`
	V17    *float64 `json:"V17" validate:"required"`
	V18    *float64 `json:"V18" validate:"required"`
	V19    *float64 `json:"V19" validate:"required"`
	V20    *float64 `json:"V20" validate:"required"`
	V21    *float64 `json:"V21" validate:"required"`
	V22    *float64 `json:"V22" validate:"required"`
	V23    *float64 `json:"V23" validate:"required"`
	V24    *float64 `json:"V24" validate:"required"`
	V25    *float64 `json:"V25" validate:"required"`
	V26    *float64 `json:"V26" validate:"required"`
	V27    *float64 `json:"V27" validate:"required"`
	V28    *float64 `json:"V28" validate:"required"`
	Amount *float64 `json:"Amount" validate:"required"`
}

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

var fieldIndex = func() map[string]int {
	index := make(map[string]int, ml.FeatureCount)
	for i, name := range ml.FieldNames() {
		index[name] = i
	}
	return index
}()

// decodeTransaction accepts exactly one JSON object holding the 30 named
// numeric fields. Every problem found is reported, ordered by field.
func decodeTransaction(body io.Reader) (ml.Transaction, []ValidationDetail) {
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ml.Transaction{}, []ValidationDetail{bodyDetail("request body too large", "value_error.body_size")}
		}
		return ml.Transaction{}, []ValidationDetail{bodyDetail(err.Error(), "value_error.body")}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ml.Transaction{}, []ValidationDetail{bodyDetail("value is not a valid dict", "type_error.dict")}
		}
		return ml.Transaction{}, []ValidationDetail{bodyDetail("Expecting value: "+err.Error(), "value_error.jsondecode")}
	}
	if raw == nil {
		return ml.Transaction{}, []ValidationDetail{bodyDetail("value is not a valid dict", "type_error.dict")}
	}

	var details []ValidationDetail
	flagged := make(map[string]bool)
	for name, value := range raw {
		if _, ok := fieldIndex[name]; !ok {
			details = append(details, fieldDetail(name, "extra fields not permitted", "value_error.extra"))
			flagged[name] = true
			continue
		}
		if string(value) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			details = append(details, fieldDetail(name, "value is not a valid float", "type_error.float"))
			flagged[name] = true
		}
	}

	var payload transactionPayload
	_ = json.Unmarshal(data, &payload)
	if err := payloadValidator.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if flagged[fe.Field()] {
					continue
				}
				details = append(details, fieldDetail(fe.Field(), "field required", "value_error.missing"))
			}
		}
	}

	if len(details) > 0 {
		sortDetails(details)
		return ml.Transaction{}, details
	}

	var tx ml.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return ml.Transaction{}, []ValidationDetail{bodyDetail(err.Error(), "value_error.jsondecode")}
	}
	return tx, nil
}

func bodyDetail(msg, typ string) ValidationDetail {
	return ValidationDetail{Loc: []string{"body"}, Msg: msg, Type: typ}
}

func fieldDetail(field, msg, typ string) ValidationDetail {
	return ValidationDetail{Loc: []string{"body", field}, Msg: msg, Type: typ}
}

// sortDetails orders by field position; unknown fields go last, by name.
func sortDetails(details []ValidationDetail) {
	position := func(d ValidationDetail) int {
		if i, ok := fieldIndex[d.Loc[len(d.Loc)-1]]; ok {
			return i
		}
		return ml.FeatureCount
	}
	sort.SliceStable(details, func(i, j int) bool {
		pi, pj := position(details[i]), position(details[j])
		if pi != pj {
			return pi < pj
		}
		return details[i].Loc[len(details[i].Loc)-1] < details[j].Loc[len(details[j].Loc)-1]
	})
}
