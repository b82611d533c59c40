package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"frauddetect/ml"

	"go.uber.org/zap"
)

// RootStatus is returned by the liveness endpoint.
const RootStatus = "API is up. Post to /predict"

type predictHandler struct {
	provider ml.ModelProvider
}

func RegisterHandlers(mux *http.ServeMux, provider ml.ModelProvider) {
	h := &predictHandler{provider: provider}
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("POST /predict", h.handlePredict)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": RootStatus})
}

func (h *predictHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	tx, details := decodeTransaction(r.Body)
	if len(details) > 0 {
		validationFailures.Inc()
		logger.Info("rejected transaction", zap.Int("problems", len(details)), zap.Any("detail", details))
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: details})
		return
	}

	prediction, err := h.provider.Predict(r.Context(), tx)
	if err != nil {
		logger.Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	predictionsTotal.WithLabelValues(strconv.Itoa(prediction.Label)).Inc()
	logger.Debug("prediction",
		zap.Float64("probability", prediction.Probability),
		zap.Int("label", prediction.Label),
	)

	writeJSON(w, http.StatusOK, prediction)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
