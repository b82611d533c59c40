// Package web 交互式前端：粘贴CSV行或手工输入字段，转发到预测服务
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"frauddetect/client"
	"frauddetect/dataset"
	qhttp "frauddetect/http"
	"frauddetect/ml"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Predicter 预测服务客户端
type Predicter interface {
	Predict(ctx context.Context, tx ml.Transaction) (ml.Prediction, error)
}

// SampleSource 历史样本行来源
type SampleSource interface {
	RawLine(index int) (string, error)
}

// Frontend 前端处理器
type Frontend struct {
	api      Predicter
	samples  SampleSource
	apiURL   string
	logger   *zap.Logger
	page     *template.Template
	upgrader websocket.Upgrader
}

// Option 前端选项
type Option func(*Frontend)

// WithSamples enables /sample and the sample picker.
func WithSamples(samples SampleSource) Option {
	return func(f *Frontend) { f.samples = samples }
}

// WithAPIURL sets the service address shown on the page.
func WithAPIURL(apiURL string) Option {
	return func(f *Frontend) { f.apiURL = apiURL }
}

// New 创建前端
func New(api Predicter, logger *zap.Logger, opts ...Option) (*Frontend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := template.New("index.html").Funcs(template.FuncMap{
		"fmtvalue": client.FormatValue,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	f := &Frontend{
		api:    api,
		logger: logger,
		page:   page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Handler 构建带中间件链的前端处理器
func (f *Frontend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", f.handlePage)
	mux.HandleFunc("POST /{$}", f.handleSubmit)
	mux.HandleFunc("GET /sample", f.handleSample)
	mux.HandleFunc("GET /ws", f.handleWebSocket)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	chain := qhttp.Chain(
		qhttp.RecoveryMiddleware(f.logger),
		qhttp.LoggerMiddleware(f.logger),
		qhttp.SecurityHeadersMiddleware,
	)
	return chain(mux)
}

func (f *Frontend) handleSample(w http.ResponseWriter, r *http.Request) {
	if f.samples == nil {
		http.Error(w, "no dataset configured", http.StatusNotFound)
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("row"))
	if err != nil {
		http.Error(w, "row must be an integer", http.StatusBadRequest)
		return
	}
	line, err := f.samples.RawLine(index)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dataset.ErrRowOutOfRange) {
			status = http.StatusNotFound
		} else {
			qhttp.LoggerFromContext(r.Context()).Error("sample lookup failed", zap.Int("row", index), zap.Error(err))
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(line))
}

// predict sends tx and turns failures into the text the page shows.
func (f *Frontend) predict(ctx context.Context, tx ml.Transaction) (ml.Prediction, string) {
	prediction, err := f.api.Predict(ctx, tx)
	if err == nil {
		return prediction, ""
	}
	var status *client.StatusError
	if errors.As(err, &status) {
		f.logger.Warn("prediction rejected", zap.Int("status", status.Code))
	} else {
		f.logger.Warn("prediction request failed", zap.Error(err))
	}
	return ml.Prediction{}, err.Error()
}
