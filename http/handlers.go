package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"houseprice/app"
	"houseprice/form"
	"houseprice/metadata"
	"houseprice/predictor"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// ResourceProvider is satisfied by *app.Runtime.
type ResourceProvider interface {
	Resources(ctx context.Context) (*app.Resources, error)
}

type Handler struct {
	provider ResourceProvider
	logger   *zap.Logger
}

func NewHandler(provider ResourceProvider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{provider: provider, logger: logger}
}

func RegisterHandlers(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handleSubmit)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/choices", h.handleChoices)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"features": res.Schema,
		"count":    len(res.Schema),
	})
}

func (h *Handler) handleChoices(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, res.Catalog)
}

// handlePredict accepts a JSON object keyed by field name. Numbers may be
// sent as JSON numbers or strings.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources(w, r)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := form.Collect(jsonValues(body))
	if err != nil {
		var invalid *form.InvalidInputError
		if errors.As(err, &invalid) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  err.Error(),
				"fields": invalid.Fields,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := res.Predictor.Predict(r.Context(), record)
	if err != nil {
		writeError(w, predictStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"price_per_area": result.PricePerArea,
		"total_price":    result.TotalPrice,
		"formatted":      res.Formatter.Summary(result),
		"row":            result.Row,
	})
}

type rowCell struct {
	Name  string
	Value interface{}
}

type pageResult struct {
	Total   string
	PerArea string
	Row     []rowCell
}

type pageData struct {
	Towns   []string
	Types   []string
	Values  map[string]string
	Errors  map[string]string
	Result  *pageResult
	Failure string
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources(w, r)
	if !ok {
		return
	}
	h.renderPage(w, http.StatusOK, newPageData(res, url.Values{}))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resources(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	data := newPageData(res, r.PostForm)
	record, err := form.Collect(r.PostForm)
	if err != nil {
		var invalid *form.InvalidInputError
		if errors.As(err, &invalid) {
			for _, f := range invalid.Fields {
				data.Errors[f.Field] = f.Reason
			}
		}
		data.Failure = err.Error()
		h.renderPage(w, http.StatusUnprocessableEntity, data)
		return
	}

	result, err := res.Predictor.Predict(r.Context(), record)
	if err != nil {
		data.Failure = err.Error()
		h.renderPage(w, predictStatus(err), data)
		return
	}

	cells := make([]rowCell, 0, len(res.Schema))
	for _, name := range res.Schema {
		cells = append(cells, rowCell{Name: name, Value: result.Row[name]})
	}
	data.Result = &pageResult{
		Total:   res.Formatter.Total(result),
		PerArea: res.Formatter.PerArea(result),
		Row:     cells,
	}
	h.renderPage(w, http.StatusOK, data)
}

// predictStatus maps a Predict error to a status. A failed prediction is
// reported as 422: the service stays usable and other inputs may succeed.
func predictStatus(err error) int {
	var failed *predictor.PredictionFailedError
	if errors.As(err, &failed) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
	}
}

// resources writes a 503 and returns false when the model cannot be served.
func (h *Handler) resources(w http.ResponseWriter, r *http.Request) (*app.Resources, bool) {
	res, err := h.provider.Resources(r.Context())
	if err != nil {
		h.logger.Error("Resources unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return res, true
}

func newPageData(res *app.Resources, submitted url.Values) pageData {
	values := map[string]string{
		form.Town:       submitted.Get(form.Town),
		form.TownManual: submitted.Get(form.TownManual),
		form.Type:       submitted.Get(form.Type),
	}
	for name, def := range form.Defaults() {
		if v := submitted.Get(name); v != "" {
			values[name] = v
			continue
		}
		values[name] = fmt.Sprint(def)
	}
	return pageData{
		Towns:  res.Catalog.Values(metadata.FieldTown),
		Types:  res.Catalog.Values(metadata.FieldType),
		Values: values,
		Errors: map[string]string{},
	}
}

type jsonValues map[string]interface{}

func (v jsonValues) Get(key string) string {
	switch x := v[key].(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

var _ form.Values = jsonValues(nil)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

var _ ResourceProvider = (*app.Runtime)(nil)
