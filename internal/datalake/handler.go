package datalake

import (
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/foundry/navigator/internal/api"
	"github.com/foundry/navigator/internal/config"
	"github.com/foundry/navigator/internal/storage"
)

const maxUploadMemory = 32 << 20

var validate = validator.New()

// Handler serves the data lake endpoints.
type Handler struct {
	resolver  *config.Resolver
	responder *api.Responder
	logger    *zap.Logger
}

// NewHandler returns a Handler reading its Config from resolver.
func NewHandler(resolver *config.Resolver, responder *api.Responder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if responder == nil {
		responder = api.NewResponder(logger, false)
	}
	return &Handler{
		resolver:  resolver,
		responder: responder,
		logger:    logger.Named("datalake"),
	}
}

// Module returns the route module that mounts h under /datalake.
func (h *Handler) Module() api.RouteModule {
	return func(r chi.Router) error {
		r.Route("/datalake", func(r chi.Router) {
			r.Post("/upload", h.handleUpload)
			r.Get("/info", h.handleInfo)
			r.Post("/optimise", h.handleOptimise)
			r.Delete("/", h.handleDelete)
		})
		return nil
	}
}

type uploadResponse struct {
	SizeUploaded float64 `json:"size_uploaded"`
}

type infoResponse struct {
	MinValue      float64 `json:"min_value"`
	MaxValue      float64 `json:"max_value"`
	MeanValue     float64 `json:"mean_value"`
	NumberOfFiles int     `json:"number_of_files"`
	TotalRecords  int     `json:"total_records"`
}

type sizeResponse struct {
	SizeBefore float64 `json:"size_before"`
	SizeAfter  float64 `json:"size_after"`
}

type infoQuery struct {
	Column string `validate:"required"`
	Date   string `validate:"omitempty,datetime=2006-01-02"`
	Key    string
}

type deleteQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
	Key  string
}

func (h *Handler) config() (*Config, error) {
	cfg, err := config.Get[Config](h.resolver)
	if err != nil {
		return nil, api.ConfigurationError(err)
	}
	return cfg, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config()
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.responder.Error(w, r, api.ValueValidationError("", "a multipart form with 'files'").Wrap(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.responder.Error(w, r, api.ValueValidationError("", "at least one file in 'files'"))
		return
	}

	var total int64
	for _, fh := range files {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
		if !supported(cfg.SupportedTypes, ext) {
			h.responder.Error(w, r, api.ValueValidationError(
				fmt.Sprintf("%s (%s)", fh.Filename, ext),
				"one of "+strings.Join(cfg.SupportedTypes, ", "),
			))
			return
		}
		total += fh.Size
	}

	if err := storage.NewDirectory(cfg.DataDirectory).Ensure(); err != nil {
		h.responder.Error(w, r, storageError(cfg.DataDirectory, err))
		return
	}

	h.logger.Info("files uploaded",
		zap.Int("files", len(files)),
		zap.Int64("bytes", total),
		zap.String("request_id", api.RequestID(r.Context())),
	)
	h.responder.JSON(w, http.StatusOK, uploadResponse{SizeUploaded: float64(total)})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if _, err := h.config(); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	query := infoQuery{Column: q.Get("column"), Date: q.Get("date"), Key: q.Get("key")}
	if err := validate.Struct(query); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	// TODO: compute statistics once uploads are persisted to the data directory.
	h.responder.JSON(w, http.StatusOK, infoResponse{})
}

func (h *Handler) handleOptimise(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config()
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	h.measure(w, r, cfg.DataDirectory, storage.NewDirectory(cfg.DataDirectory))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config()
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	query := deleteQuery{Date: q.Get("date"), Key: q.Get("key")}
	if err := validate.Struct(query); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	h.measure(w, r, cfg.DataDirectory, storage.NewDirectory(cfg.DataDirectory))
}

// measure reports the size of the store before and after the request.
func (h *Handler) measure(w http.ResponseWriter, r *http.Request, location string, store storage.Storage) {
	before, err := store.Size(r.Context())
	if err != nil {
		h.responder.Error(w, r, storageError(location, err))
		return
	}
	after, err := store.Size(r.Context())
	if err != nil {
		h.responder.Error(w, r, storageError(location, err))
		return
	}
	h.responder.JSON(w, http.StatusOK, sizeResponse{SizeBefore: float64(before), SizeAfter: float64(after)})
}

// storageError reports a data directory that could not be read or created.
func storageError(location string, err error) *api.Error {
	return api.ExternalConnectionError("data directory "+location, err)
}

func supported(types []string, ext string) bool {
	return slices.ContainsFunc(types, func(t string) bool {
		return strings.EqualFold(strings.TrimPrefix(t, "."), ext)
	})
}
