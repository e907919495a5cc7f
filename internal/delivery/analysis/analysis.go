package analysis

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kata_review/internal/domain"
	errs "kata_review/internal/errors"
	"kata_review/internal/httpresponse"
	"kata_review/internal/report"
	analysisUC "kata_review/internal/usecase/analysis"
	"kata_review/internal/utils"
)

const defaultListLimit = 50

type AnalysisHandler struct {
	analyzer *analysisUC.Analyzer
	log      *zap.SugaredLogger
}

type AnalyzeRequest struct {
	Source string `json:"source"`
	SGF    string `json:"sgf"`
}

func NewAnalysisHandler(analyzer *analysisUC.Analyzer, log *zap.SugaredLogger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, log: log}
}

func (h *AnalysisHandler) Router(r chi.Router) {
	r.Post("/analyze", h.Analyze)
	r.Get("/ws/analyze", h.AnalyzeWS)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
	r.Get("/runs/{id}/report.{format}", h.GetReport)
}

// Analyze godoc
// @Summary Анализ партии
// @Description Прогоняет каждую позицию основной линии SGF через KataGo и возвращает аннотированные узлы
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "SGF партии"
// @Success 200 {object} domain.Analysis
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 502 {object} httpresponse.ErrorResponse
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		h.log.Debugw("bad analyze request", "error", err)
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SGF == "" {
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, "sgf is required")
		return
	}

	run, err := h.analyzer.RunText(r.Context(), req.Source, req.SGF, nil)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, run)
}

// ListRuns godoc
// @Summary Список сохранённых анализов (без узлов)
// @Tags analysis
// @Produce json
// @Param limit query int false "Сколько вернуть"
// @Success 200 {array} domain.Analysis
// @Router /runs [get]
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httpresponse.WriteErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.analyzer.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Errorw("failed to list runs", "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	if runs == nil {
		runs = []domain.Analysis{}
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, runs)
}

func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, run)
}

// GetReport renders an archived run as pdf, yaml or dot.
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, run); err != nil {
		h.log.Errorw("failed to render report", "run", run.ID, "format", format, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", "inline; filename=\""+run.ID+format.Ext()+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *AnalysisHandler) loadRun(w http.ResponseWriter, r *http.Request) (domain.Analysis, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.analyzer.GetRun(r.Context(), id)
	if errors.Is(err, errs.ErrRunNotFound) {
		httpresponse.WriteErrorResponse(w, http.StatusNotFound, "run not found")
		return domain.Analysis{}, false
	}
	if err != nil {
		h.log.Errorw("failed to load run", "run", id, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return domain.Analysis{}, false
	}
	return run, true
}

func (h *AnalysisHandler) writeRunError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("analysis failed", "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	resp := httpresponse.ErrorResponse{ErrorDescription: err.Error()}
	var plyErr *errs.PlyError
	if errors.As(err, &plyErr) {
		resp.Ply = &plyErr.Ply
	}
	httpresponse.WriteResponseWithStatus(w, status, resp)
}

// StatusFor maps an analysis error to the HTTP status reported for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrMalformedRecord), errors.Is(err, errs.ErrCoordinateOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrEngineTimeout):
		return http.StatusGatewayTimeout
	case errs.IsEngineFailure(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatPDF:
		return "application/pdf"
	case report.FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "application/yaml; charset=utf-8"
}
