package web

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"frauddetect/client"
	qhttp "frauddetect/http"

	"go.uber.org/zap"
)

// pageData 页面渲染数据
type pageData struct {
	APIURL     string
	CSV        string
	Parsed     bool
	ParseError string
	Preview    []client.Field
	Groups     [][]client.Field
	FormError  string
	Source     client.Source
	Result     *resultView
	Error      string
	HasSamples bool
	SampleRow  string
}

type resultView struct {
	Probability float64
	Label       int
}

func (r resultView) Fraud() bool { return r.Label == 1 }

func (f *Frontend) newPage(csv string, form *client.ManualForm) *pageData {
	data := &pageData{
		APIURL:     f.apiURL,
		CSV:        csv,
		Groups:     form.Groups(client.FieldsPerRow),
		HasSamples: f.samples != nil,
	}
	if strings.TrimSpace(csv) == "" {
		return data
	}
	tx, err := client.ParseCSVRow(csv)
	if err != nil {
		data.ParseError = err.Error()
		return data
	}
	data.Parsed = true
	data.Preview = client.Preview(tx, client.PreviewFields)
	return data
}

func (f *Frontend) handlePage(w http.ResponseWriter, r *http.Request) {
	data := f.newPage("", client.NewManualForm())

	// ?sample=N prefills the paste box without JavaScript
	if raw := r.URL.Query().Get("sample"); raw != "" && f.samples != nil {
		data.SampleRow = raw
		index, err := strconv.Atoi(raw)
		if err != nil {
			data.Error = "sample row must be an integer"
		} else if line, err := f.samples.RawLine(index); err != nil {
			data.Error = err.Error()
		} else {
			data = f.newPage(line, client.NewManualForm())
			data.SampleRow = raw
		}
	}
	f.render(w, http.StatusOK, data)
}

func (f *Frontend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	logger := qhttp.LoggerFromContext(r.Context())

	form, formErr := client.FromValues(r.PostForm)
	data := f.newPage(r.PostForm.Get("csv"), form)
	if formErr != nil {
		data.FormError = formErr.Error()
	}

	if !r.PostForm.Has("predict") {
		f.render(w, http.StatusOK, data)
		return
	}

	resolution := client.Resolve(data.CSV, form.Transaction())
	data.Source = resolution.Source
	if resolution.Source == client.SourceManual && formErr != nil {
		data.Error = "fix the manual fields before predicting"
		f.render(w, http.StatusOK, data)
		return
	}

	prediction, errText := f.predict(r.Context(), resolution.Record)
	if errText != "" {
		data.Error = errText
	} else {
		data.Result = &resultView{Probability: prediction.Probability, Label: prediction.Label}
		logger.Info("prediction shown",
			zap.String("source", string(resolution.Source)),
			zap.Float64("probability", prediction.Probability),
			zap.Int("label", prediction.Label),
		)
	}
	f.render(w, http.StatusOK, data)
}

func (f *Frontend) render(w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := f.page.Execute(&buf, data); err != nil {
		f.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
