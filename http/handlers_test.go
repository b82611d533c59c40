package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestRootHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleRoot)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"API is up. Post to /predict"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestAPIHandlerRoutes(t *testing.T) {
	handler := APIHandler(DefaultServerConfig(), &fakeModel{}, zap.NewNop())

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/predict", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, w.Code)
		}
	}
}

func TestMetricsExposePredictionCounter(t *testing.T) {
	handler := APIHandler(DefaultServerConfig(), &fakeModel{probability: 0.9}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(validBody(nil)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `fraud_predictions_total{label="1"}`) {
		t.Fatalf("expected prediction counter in metrics output")
	}
}
