package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"frauddetect/client"
	"frauddetect/dataset"
	"frauddetect/ml"
)

const exampleRow = "0,-1.36,-0.07,2.54,1.38,-0.34,0.46,0.24,0.10,0.36,0.09,-0.55,-0.62,-0.99,-0.31,1.47,-0.47,0.21,0.03,0.40,0.25,-0.02,0.28,-0.11,0.07,0.13,-0.19,0.13,-0.02,149.62"

type fakeAPI struct {
	mu         sync.Mutex
	prediction ml.Prediction
	err        error
	seen       []ml.Transaction
}

func (f *fakeAPI) Predict(ctx context.Context, tx ml.Transaction) (ml.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, tx)
	return f.prediction, f.err
}

func (f *fakeAPI) calls() []ml.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ml.Transaction(nil), f.seen...)
}

type fakeSamples map[int]string

func (s fakeSamples) RawLine(index int) (string, error) {
	line, ok := s[index]
	if !ok {
		return "", &dataset.RowRangeError{Index: index, Rows: len(s)}
	}
	return line, nil
}

func newTestFrontend(t *testing.T, api *fakeAPI, opts ...Option) http.Handler {
	t.Helper()
	f, err := New(api, nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f.Handler()
}

func postForm(t *testing.T, h http.Handler, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func TestPageRendersManualFields(t *testing.T) {
	h := newTestFrontend(t, &fakeAPI{}, WithAPIURL("http://127.0.0.1:8000/predict"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range ml.FieldNames() {
		if !strings.Contains(body, `name="`+name+`" value="0.000000"`) {
			t.Errorf("manual field %s missing or not defaulted", name)
		}
	}
	if got := strings.Count(body, `<div class="row">`); got != 6 {
		t.Errorf("field rows = %d, want 6", got)
	}
	if !strings.Contains(body, "http://127.0.0.1:8000/predict") {
		t.Error("api url not shown")
	}
	if strings.Contains(body, `id="sample-row"`) {
		t.Error("sample picker shown without a dataset")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
}

func TestSubmitParsesWithoutPredicting(t *testing.T) {
	api := &fakeAPI{}
	h := newTestFrontend(t, api)

	code, body := postForm(t, h, url.Values{"csv": {exampleRow + ",0"}})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "Parsed 30 values") {
		t.Error("parse success not shown")
	}
	if !strings.Contains(body, "<th>V4</th>") || strings.Contains(body, "<th>V5</th>") {
		t.Error("preview should list the first five fields")
	}
	if len(api.calls()) != 0 {
		t.Error("api called without the predict button")
	}
}

func TestSubmitPredictsFromPaste(t *testing.T) {
	api := &fakeAPI{prediction: ml.Prediction{Probability: 0.912345678, Label: 1}}
	h := newTestFrontend(t, api)

	code, body := postForm(t, h, url.Values{
		"csv":     {exampleRow},
		"Amount":  {"5"},
		"predict": {"1"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	calls := api.calls()
	if len(calls) != 1 {
		t.Fatalf("api calls = %d, want 1", len(calls))
	}
	if calls[0].Amount != 149.62 || calls[0].V1 != -1.36 {
		t.Errorf("pasted row not used: %+v", calls[0])
	}
	if !strings.Contains(body, "0.912346") {
		t.Error("probability not rendered with six decimals")
	}
	if !strings.Contains(body, "Predicted label: <strong>1</strong>") {
		t.Error("label not rendered")
	}
	if !strings.Contains(body, "Record source: csv") {
		t.Error("source not rendered")
	}
}

func TestSubmitFallsBackToManual(t *testing.T) {
	api := &fakeAPI{prediction: ml.Prediction{Probability: 0.1, Label: 0}}
	h := newTestFrontend(t, api)

	_, body := postForm(t, h, url.Values{
		"csv":     {"1,2,3"},
		"Time":    {"7"},
		"Amount":  {"12.5"},
		"predict": {"1"},
	})

	calls := api.calls()
	if len(calls) != 1 {
		t.Fatalf("api calls = %d, want 1", len(calls))
	}
	if calls[0].Time != 7 || calls[0].Amount != 12.5 {
		t.Errorf("manual values not used: %+v", calls[0])
	}
	if !strings.Contains(body, "Found 3 values.") {
		t.Error("parse error should stay visible after fallback")
	}
	if !strings.Contains(body, "Record source: manual") {
		t.Error("source not rendered")
	}
}

func TestSubmitShowsAPIErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", &client.StatusError{Code: 422, Body: `{"detail":[]}`}, "API returned 422: {&#34;detail&#34;:[]}"},
		{"transport", &client.RequestError{Err: errors.New("connection refused")}, "Request failed: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestFrontend(t, &fakeAPI{err: tt.err})
			_, body := postForm(t, h, url.Values{"csv": {exampleRow}, "predict": {"1"}})
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if strings.Contains(body, "Fraud probability") {
				t.Error("result shown on error")
			}
		})
	}
}

func TestSubmitRejectsBadManualField(t *testing.T) {
	api := &fakeAPI{}
	h := newTestFrontend(t, api)

	_, body := postForm(t, h, url.Values{"V9": {"lots"}, "predict": {"1"}})
	if len(api.calls()) != 0 {
		t.Error("api called with an invalid manual field")
	}
	if !strings.Contains(body, "field V9") {
		t.Error("field error not shown")
	}
}

func TestSampleEndpoint(t *testing.T) {
	samples := fakeSamples{0: exampleRow}
	h := newTestFrontend(t, &fakeAPI{}, WithSamples(samples))

	tests := []struct {
		query string
		code  int
		body  string
	}{
		{"row=0", http.StatusOK, exampleRow},
		{"row=5", http.StatusNotFound, "out of bounds"},
		{"row=x", http.StatusBadRequest, "integer"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sample?"+tt.query, nil))
		if rec.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.query, rec.Code, tt.code)
		}
		if !strings.Contains(rec.Body.String(), tt.body) {
			t.Errorf("%s: body = %q", tt.query, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?sample=0", nil))
	if !strings.Contains(rec.Body.String(), exampleRow) || !strings.Contains(rec.Body.String(), "Parsed 30 values") {
		t.Error("sample query should prefill and parse the paste box")
	}
}

func TestSampleEndpointWithoutDataset(t *testing.T) {
	h := newTestFrontend(t, &fakeAPI{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sample?row=0", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	h := newTestFrontend(t, &fakeAPI{})

	for _, name := range []string{"app.js", "app.css"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/"+name, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestPageMethodNotAllowed(t *testing.T) {
	h := newTestFrontend(t, &fakeAPI{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
