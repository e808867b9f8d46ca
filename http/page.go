package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"churnguard/form"
	"churnguard/ml"

	"go.uber.org/zap"
)

//go:embed templates/form.html
var templateFS embed.FS

var formPage = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type pageView struct {
	Title   string
	Fields  []fieldView
	Verdict *verdictView
	Error   *errorView
}

type fieldView struct {
	Name    string
	Label   string
	Numeric bool
	Slider  bool
	Min     string
	Max     string
	Step    string
	Range   string
	Value   string
	Choices []choiceView
	Error   string
}

type choiceView struct {
	Value    string
	Selected bool
}

type verdictView struct {
	Churn      bool
	Message    string
	Confidence string
}

type errorView struct {
	Title  string
	Detail string
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	schema := h.deps.Predictor.Schema()
	values := make(map[string]string, len(schema.Fields))
	for name, v := range form.Defaults(schema) {
		values[name] = form.Text(v)
	}
	h.render(w, r, http.StatusOK, h.view(values, nil))
}

// handleSubmit 收集表单、预测，并带着提交的值重新渲染页面
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	schema := h.deps.Predictor.Schema()
	if err := r.ParseForm(); err != nil {
		view := h.view(submitted(schema, nil), nil)
		view.Error = &errorView{Title: "Could not read the form", Detail: "The submission was malformed or too large."}
		h.render(w, r, http.StatusBadRequest, view)
		return
	}
	values := submitted(schema, r.PostForm)

	record, err := form.FromValues(schema, r.PostForm)
	if err == nil {
		var verdict *ml.Verdict
		verdict, err = h.predict(r.Context(), record)
		if err == nil {
			view := h.view(values, nil)
			view.Verdict = &verdictView{
				Churn:      verdict.Churn,
				Message:    verdict.Message(),
				Confidence: verdict.ConfidenceText(),
			}
			h.render(w, r, http.StatusOK, view)
			return
		}
	}

	f := classify(err)
	h.observe(r, err, f)
	view := h.view(values, f.fields)
	view.Error = errorBanner(f)
	h.render(w, r, f.status, view)
}

func errorBanner(f failure) *errorView {
	switch {
	case len(f.fields) > 0:
		return &errorView{Title: "Please correct the highlighted fields", Detail: f.fields.Error()}
	case f.mismatch != nil:
		return &errorView{
			Title: "Feature mismatch",
			Detail: "The model expects " + strconv.Itoa(f.mismatch.Expected) +
				" features but this input produced " + strconv.Itoa(f.mismatch.Actual) +
				". The form schema does not match the loaded model.",
		}
	default:
		return &errorView{Title: "Prediction failed", Detail: f.message}
	}
}

// submitted keeps what the user typed, falling back to defaults for blanks.
func submitted(schema *ml.Schema, posted map[string][]string) map[string]string {
	values := make(map[string]string, len(schema.Fields))
	defaults := form.Defaults(schema)
	for _, f := range schema.Fields {
		if vs := posted[f.Name]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			values[f.Name] = strings.TrimSpace(vs[0])
			continue
		}
		values[f.Name] = form.Text(defaults[f.Name])
	}
	return values
}

func (h *Handler) view(values map[string]string, errs form.Errors) pageView {
	schema := h.deps.Predictor.Schema()
	view := pageView{Title: h.title, Fields: make([]fieldView, 0, len(schema.Fields))}
	for _, f := range schema.Fields {
		fv := fieldView{
			Name:    f.Name,
			Label:   f.DisplayLabel(),
			Numeric: f.Numeric(),
			Value:   values[f.Name],
			Error:   errs.For(f.Name),
		}
		if f.Numeric() {
			fv.Slider = f.Type == ml.FieldInteger && f.Min != nil && f.Max != nil
			fv.Min = bound(f.Min)
			fv.Max = bound(f.Max)
			fv.Range = form.RangeText(f)
			fv.Step = "any"
			switch {
			case f.Step > 0:
				fv.Step = strconv.FormatFloat(f.Step, 'f', -1, 64)
			case f.Type == ml.FieldInteger:
				fv.Step = "1"
			}
		}
		for _, c := range f.Choices {
			fv.Choices = append(fv.Choices, choiceView{Value: c, Selected: strings.EqualFold(c, fv.Value)})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func bound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	var buf bytes.Buffer
	if err := formPage.Execute(&buf, view); err != nil {
		h.deps.Logger.Error("render form failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
