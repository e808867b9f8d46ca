package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"churnguard/db"
	"churnguard/form"
	"churnguard/ml"
	"churnguard/monitoring"

	"go.uber.org/zap"
)

// Dependencies 处理器依赖
type Dependencies struct {
	Predictor *ml.Predictor
	Logger    *zap.Logger
	Metrics   *monitoring.MetricsCollector
	// Log 为nil时不记录预测结果
	Log *db.PredictionLog
}

// Handler 表单与JSON接口处理器
type Handler struct {
	deps  Dependencies
	title string
}

// NewHandler 创建处理器
func NewHandler(deps Dependencies, title string) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{deps: deps, title: title}
}

// Register 注册路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /{$}", h.handleSubmit)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics.Handler())
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictRequest struct {
	Fields map[string]interface{} `json:"fields"`
}

type predictResponse struct {
	Churn          bool        `json:"churn"`
	Label          int         `json:"label"`
	Message        string      `json:"message"`
	Confidence     *float64    `json:"confidence,omitempty"`
	ConfidenceText string      `json:"confidence_text,omitempty"`
	Strategy       ml.Strategy `json:"strategy"`
}

type fieldErrorResponse struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error    string               `json:"error"`
	Expected *int                 `json:"expected,omitempty"`
	Actual   *int                 `json:"actual,omitempty"`
	Fields   []fieldErrorResponse `json:"fields,omitempty"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object like {\"fields\":{...}}"})
		return
	}

	record, err := form.FromMap(h.deps.Predictor.Schema(), req.Fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	verdict, err := h.predict(r.Context(), record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := predictResponse{
		Churn:    verdict.Churn,
		Label:    verdict.Label,
		Message:  verdict.Message(),
		Strategy: verdict.Strategy,
	}
	if verdict.HasProbability {
		c := verdict.Confidence()
		resp.Confidence = &c
		resp.ConfidenceText = verdict.ConfidenceText()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	p := h.deps.Predictor
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy":       p.Strategy(),
		"expected_width": p.ExpectedWidth(),
		"columns":        p.Columns(),
		"fields":         p.Schema().Fields,
	})
}

func (h *Handler) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Log == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "prediction log is disabled"})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = l
	}

	predictions, err := h.deps.Log.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.deps.Logger.Error("query predictions failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not read the prediction log"})
		return
	}
	total, rate, err := h.deps.Log.ChurnRate(r.Context())
	if err != nil {
		h.deps.Logger.Error("query churn rate failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not read the prediction log"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": predictions,
		"total":       total,
		"churn_rate":  rate,
	})
}

// predict 运行预测并记录指标与日志
func (h *Handler) predict(ctx context.Context, record ml.Record) (*ml.Verdict, error) {
	start := time.Now()
	verdict, err := h.deps.Predictor.Predict(ctx, record)
	if err != nil {
		return nil, err
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordPrediction(verdict.Churn, time.Since(start))
	}
	if h.deps.Log != nil {
		if err := h.deps.Log.SavePrediction(ctx, verdict); err != nil {
			h.deps.Logger.Warn("save prediction failed", zap.Error(err))
		}
	}
	return verdict, nil
}

// failure 描述一次失败的提交
type failure struct {
	status   int
	kind     string
	message  string
	mismatch *ml.FeatureMismatchError
	fields   form.Errors
}

// classify 将错误映射为HTTP状态码和面向用户的说明
func classify(err error) failure {
	var (
		fieldErrs form.Errors
		mismatch  *ml.FeatureMismatchError
		stageErr  *ml.StageError
	)
	switch {
	case errors.As(err, &fieldErrs):
		return failure{status: http.StatusBadRequest, kind: "field", message: "some fields are invalid", fields: fieldErrs}
	case errors.As(err, &mismatch):
		return failure{status: http.StatusUnprocessableEntity, kind: "feature_mismatch", message: mismatch.Error(), mismatch: mismatch}
	case errors.Is(err, ml.ErrInvalidRecord):
		return failure{status: http.StatusBadRequest, kind: "invalid_record", message: "the submitted values could not be encoded"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failure{status: http.StatusServiceUnavailable, kind: "cancelled", message: "the request was cancelled before a prediction was made"}
	case errors.As(err, &stageErr):
		return failure{status: http.StatusInternalServerError, kind: stageErr.Stage.String(),
			message: fmt.Sprintf("prediction failed while %s the input", stageErr.Stage)}
	default:
		return failure{status: http.StatusInternalServerError, kind: "internal", message: "prediction failed"}
	}
}

func (h *Handler) observe(r *http.Request, err error, f failure) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordError(f.kind)
	}
	fields := []zap.Field{
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("kind", f.kind),
		zap.Error(err),
	}
	if f.status >= http.StatusInternalServerError {
		h.deps.Logger.Error("prediction failed", fields...)
		return
	}
	h.deps.Logger.Info("submission rejected", fields...)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	f := classify(err)
	h.observe(r, err, f)

	resp := errorResponse{Error: f.message}
	if f.mismatch != nil {
		resp.Expected = &f.mismatch.Expected
		resp.Actual = &f.mismatch.Actual
	}
	for _, fe := range f.fields {
		resp.Fields = append(resp.Fields, fieldErrorResponse{Field: fe.Field, Label: fe.Label, Reason: fe.Reason})
	}
	writeJSON(w, f.status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
