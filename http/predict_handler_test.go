package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"frauddetect/ml"

	"go.uber.org/zap"
)

type fakeModel struct {
	probability float64
	err         error
	calls       int
	seen        ml.Transaction
}

func (f *fakeModel) Predict(ctx context.Context, tx ml.Transaction) (ml.Prediction, error) {
	f.calls++
	f.seen = tx
	if f.err != nil {
		return ml.Prediction{}, f.err
	}
	return ml.Prediction{Probability: f.probability, Label: ml.LabelFor(f.probability)}, nil
}

func validBody(mutate func(map[string]interface{})) string {
	body := make(map[string]interface{}, ml.FeatureCount)
	for i, name := range ml.FieldNames() {
		body[name] = float64(i) / 10
	}
	body["Amount"] = 149.62
	if mutate != nil {
		mutate(body)
	}
	payload, _ := json.Marshal(body)
	return string(payload)
}

func postPredict(t *testing.T, model *fakeModel, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := APIHandler(DefaultServerConfig(), model, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeDetails(t *testing.T, w *httptest.ResponseRecorder) []ValidationDetail {
	t.Helper()
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var payload validationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Detail) == 0 {
		t.Fatal("expected validation details")
	}
	return payload.Detail
}

func TestHandlePredict(t *testing.T) {
	model := &fakeModel{probability: 0.75}
	w := postPredict(t, model, validBody(nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["label"].(float64) != 1 {
		t.Fatalf("unexpected label: %v", payload["label"])
	}
	if payload["probability"].(float64) != 0.75 {
		t.Fatalf("unexpected probability: %v", payload["probability"])
	}
	if model.seen.Amount != 149.62 || model.seen.V1 != 0.1 {
		t.Fatalf("transaction not decoded in field order: %+v", model.seen)
	}
}

func TestHandlePredictLowProbability(t *testing.T) {
	w := postPredict(t, &fakeModel{probability: 0.5}, validBody(nil))
	var prediction ml.Prediction
	if err := json.Unmarshal(w.Body.Bytes(), &prediction); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if prediction.Label != 0 {
		t.Fatalf("expected label 0 at exactly 0.5, got %d", prediction.Label)
	}
}

func TestHandlePredictMissingField(t *testing.T) {
	model := &fakeModel{probability: 0.1}
	w := postPredict(t, model, validBody(func(body map[string]interface{}) {
		delete(body, "V3")
		delete(body, "Amount")
	}))

	details := decodeDetails(t, w)
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %+v", details)
	}
	if details[0].Loc[1] != "V3" || details[0].Type != "value_error.missing" {
		t.Fatalf("unexpected first detail: %+v", details[0])
	}
	if details[1].Loc[1] != "Amount" {
		t.Fatalf("unexpected second detail: %+v", details[1])
	}
	if model.calls != 0 {
		t.Fatal("classifier must not be reached on validation failure")
	}
}

func TestHandlePredictNullField(t *testing.T) {
	w := postPredict(t, &fakeModel{}, validBody(func(body map[string]interface{}) {
		body["V10"] = nil
	}))
	details := decodeDetails(t, w)
	if details[0].Loc[1] != "V10" || details[0].Type != "value_error.missing" {
		t.Fatalf("unexpected detail: %+v", details[0])
	}
}

func TestHandlePredictWrongType(t *testing.T) {
	model := &fakeModel{}
	w := postPredict(t, model, validBody(func(body map[string]interface{}) {
		body["V5"] = "abc"
		body["Time"] = true
	}))

	details := decodeDetails(t, w)
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %+v", details)
	}
	if details[0].Loc[1] != "Time" || details[0].Type != "type_error.float" {
		t.Fatalf("unexpected detail: %+v", details[0])
	}
	if details[1].Loc[1] != "V5" || details[1].Type != "type_error.float" {
		t.Fatalf("unexpected detail: %+v", details[1])
	}
	if model.calls != 0 {
		t.Fatal("classifier must not be reached on validation failure")
	}
}

func TestHandlePredictExtraField(t *testing.T) {
	w := postPredict(t, &fakeModel{}, validBody(func(body map[string]interface{}) {
		body["Class"] = 1
	}))
	details := decodeDetails(t, w)
	if details[0].Loc[1] != "Class" || details[0].Type != "value_error.extra" {
		t.Fatalf("unexpected detail: %+v", details[0])
	}
}

func TestHandlePredictMalformedBody(t *testing.T) {
	cases := map[string]string{
		"not json":  "{",
		"array":     "[1,2,3]",
		"null":      "null",
		"empty":     "",
		"too large": `{"Time":` + strings.Repeat("1", 2<<20) + `}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			details := decodeDetails(t, postPredict(t, &fakeModel{}, body))
			if len(details[0].Loc) != 1 || details[0].Loc[0] != "body" {
				t.Fatalf("expected body-level detail, got %+v", details[0])
			}
		})
	}
}

func TestHandlePredictModelError(t *testing.T) {
	w := postPredict(t, &fakeModel{err: errors.New("classifier produced a non-finite probability")}, validBody(nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] == "" {
		t.Fatal("expected error message")
	}
}
