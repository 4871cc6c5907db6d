package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/streaming"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0-dev"

// maxBatchBytes bounds the body of a posted batch.
const maxBatchBytes = 32 << 20

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	live    LiveStore
	reports ReportStore
}

// NewHandlers creates a new Handlers. reports may be nil.
func NewHandlers(live LiveStore, reports ReportStore) *Handlers {
	return &Handlers{live: live, reports: reports}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleSummary returns sample counts and AUCs of the live accumulator.
func (h *Handlers) HandleSummary(w http.ResponseWriter, _ *http.Request) {
	resp := SummaryResponse{AUC: map[string]float64{}}
	err := h.live.Inspect(func(acc *streaming.Accumulator, stats collector.Stats, history []float64) error {
		resp.Samples = stats.Samples
		resp.Batches = stats.Batches
		resp.Rejected = stats.Rejected
		resp.Classes = acc.NumClasses()
		resp.Thresholds = acc.NumThresholds()
		resp.Positives = make([]int64, resp.Classes)
		resp.ClassAUC = make([]float64, resp.Classes)
		for k := range resp.Classes {
			pos, err := acc.ClassPositives(k)
			if err != nil {
				return err
			}
			auc, err := acc.AUC(k, streaming.AggregationNone)
			if err != nil {
				return err
			}
			resp.Positives[k], resp.ClassAUC[k] = pos, auc
		}
		for _, agg := range streaming.Aggregations[1:] {
			if auc, err := acc.AUC(0, agg); err == nil {
				resp.AUC[agg.String()] = auc
			}
		}
		if len(history) > 0 {
			s := metrics.Summarize(history)
			resp.BatchAUC = &s
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleConfusion returns the confusion cell nearest ?threshold= for the
// requested class or aggregation.
func (h *Handlers) HandleConfusion(w http.ResponseWriter, r *http.Request) {
	class, agg, err := parseTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target := 0.5
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		target, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("threshold %q is not a number", raw))
			return
		}
	}

	resp := ConfusionResponse{Class: class, Aggregation: agg.String()}
	err = h.live.View(func(acc *streaming.Accumulator) error {
		thresholds := acc.Thresholds()
		t := metrics.NearestThreshold(thresholds, target)
		resp.Threshold, resp.ThresholdIndex = thresholds[t], t

		cell, err := confusionFor(acc, t, class, agg)
		if err != nil {
			return err
		}
		resp.Confusion = cell
		for _, m := range []struct {
			fn  streaming.MetricFunc
			dst *float64
		}{
			{streaming.TPR, &resp.TPR},
			{streaming.FPR, &resp.FPR},
			{streaming.Precision, &resp.Precision},
			{streaming.F1, &resp.F1},
			{streaming.Accuracy, &resp.Accuracy},
		} {
			v, err := acc.MetricAt(m.fn, t, class, agg)
			if err != nil {
				return err
			}
			*m.dst = v
		}
		return nil
	})
	if err != nil {
		writeAccumulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// confusionFor returns the raw cell of one class, or the pooled cell over
// every class for an aggregated request.
func confusionFor(acc *streaming.Accumulator, t, class int, agg streaming.Aggregation) (streaming.Confusion, error) {
	if agg == streaming.AggregationNone {
		return acc.ConfusionAt(t, class)
	}
	var pooled streaming.Confusion
	for k := range acc.NumClasses() {
		cell, err := acc.ConfusionAt(t, k)
		if err != nil {
			return streaming.Confusion{}, err
		}
		pooled = pooled.Add(cell)
	}
	return pooled, nil
}

// HandleROC returns the ROC curve and its AUC.
func (h *Handlers) HandleROC(w http.ResponseWriter, r *http.Request) {
	class, agg, err := parseTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := ROCResponse{Class: class, Aggregation: agg.String()}
	err = h.live.View(func(acc *streaming.Accumulator) error {
		points, err := acc.ROCCurve(class, agg)
		if err != nil {
			return err
		}
		auc, err := acc.AUC(class, agg)
		if err != nil {
			return err
		}
		resp.Points, resp.AUC, resp.Thresholds = points, auc, acc.Thresholds()
		return nil
	})
	if err != nil {
		writeAccumulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePR returns the precision-recall curve.
func (h *Handlers) HandlePR(w http.ResponseWriter, r *http.Request) {
	class, agg, err := parseTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := PRResponse{Class: class, Aggregation: agg.String()}
	err = h.live.View(func(acc *streaming.Accumulator) error {
		resp.Points, err = acc.PrecisionRecallCurve(class, agg)
		return err
	})
	if err != nil {
		writeAccumulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAUC returns a single AUC value.
func (h *Handlers) HandleAUC(w http.ResponseWriter, r *http.Request) {
	class, agg, err := parseTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := AUCResponse{Class: class, Aggregation: agg.String()}
	err = h.live.View(func(acc *streaming.Accumulator) error {
		resp.AUC, err = acc.AUC(class, agg)
		return err
	})
	if err != nil {
		writeAccumulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleBatch folds a posted JSON batch into the live accumulator. A batch
// that does not fit is rejected whole.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	dec.DisallowUnknownFields()

	var req BatchRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid batch: %v", err))
		return
	}
	if err := h.live.UpdateRows(req.Labels, req.Scores); err != nil {
		writeAccumulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, BatchResponse{
		Accepted: len(req.Labels),
		Samples:  h.live.Stats().Samples,
	})
}

// HandleReset zeroes the live accumulator.
func (h *Handlers) HandleReset(w http.ResponseWriter, _ *http.Request) {
	h.live.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// HandleReports returns a list of saved reports, with optional sort/order query params.
func (h *Handlers) HandleReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeJSON(w, http.StatusOK, []ReportSummary{})
		return
	}
	reports, err := h.reports.ListReports(r.URL.Query().Get("sort"), r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandleReportDetail returns one saved report.
func (h *Handlers) HandleReportDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "report id is required")
		return
	}
	if h.reports == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	report, err := h.reports.GetReport(id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, live LiveStore, reports ReportStore) {
	h := NewHandlers(live, reports)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/summary", h.HandleSummary)
	mux.HandleFunc("GET /api/confusion", h.HandleConfusion)
	mux.HandleFunc("GET /api/roc", h.HandleROC)
	mux.HandleFunc("GET /api/pr", h.HandlePR)
	mux.HandleFunc("GET /api/auc", h.HandleAUC)
	mux.HandleFunc("POST /api/batches", h.HandleBatch)
	mux.HandleFunc("POST /api/reset", h.HandleReset)
	mux.HandleFunc("GET /api/reports", h.HandleReports)
	mux.HandleFunc("GET /api/reports/{id}", h.HandleReportDetail)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// parseTarget reads ?class= (default 0) and ?aggregation= (default none).
func parseTarget(r *http.Request) (int, streaming.Aggregation, error) {
	q := r.URL.Query()
	class := 0
	if raw := q.Get("class"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("class %q is not an integer", raw)
		}
		class = v
	}
	agg, err := streaming.ParseAggregation(q.Get("aggregation"))
	if err != nil {
		return 0, 0, err
	}
	return class, agg, nil
}

// writeAccumulatorError maps caller mistakes to 400 and anything else to 500.
func writeAccumulatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, streaming.ErrIndexOutOfRange),
		errors.Is(err, streaming.ErrShapeMismatch),
		errors.Is(err, streaming.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
