package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jsonlkit/internal/config"
	"jsonlkit/internal/converter"
	"jsonlkit/internal/store"
	"jsonlkit/internal/version"
	"jsonlkit/pkg/configutil"
	"jsonlkit/pkg/human"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxBodyBytes    = 32 << 20
	maxDecimals     = 100
)

// Handler serves the size, convert and dataset endpoints.
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	converter *converter.Converter
	logger    *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(cfg *config.Config, store *store.Store, converter *converter.Converter, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		converter: converter,
		logger:    logger.With("component", "handler"),
	}
}

// Register attaches middleware and routes to the gin engine.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(h.identify, h.accessLog)
	r.GET("/size/:value", h.handleSize)
	r.POST("/convert", h.handleConvert)
	r.GET("/datasets", h.handleListDatasets)
	r.GET("/datasets/:name", h.handleGetDataset)
	r.PUT("/datasets/:name", h.handlePutDataset)
	r.DELETE("/datasets/:name", h.handleDeleteDataset)
}

type sizeResponse struct {
	Bytes         float64 `json:"bytes"`
	Metric        bool    `json:"metric"`
	DecimalPlaces int     `json:"decimal_places"`
	Formatted     string  `json:"formatted"`
}

func (h *Handler) handleSize(c *gin.Context) {
	bytes, err := configutil.ParseByteCount(c.Param("value"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	metric := h.cfg.Format.Metric
	if raw := c.Query("metric"); raw != "" {
		metric, err = strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid metric flag %q", raw))
			return
		}
	}
	decimals := h.cfg.Format.DecimalPlaces
	if raw := c.Query("decimals"); raw != "" {
		decimals, err = strconv.Atoi(raw)
		if err != nil || decimals < 0 || decimals > maxDecimals {
			h.respondError(c, http.StatusBadRequest, fmt.Errorf("decimals must be an integer within 0-%d, got %q", maxDecimals, raw))
			return
		}
	}
	c.JSON(http.StatusOK, sizeResponse{
		Bytes:         bytes,
		Metric:        metric,
		DecimalPlaces: decimals,
		Formatted:     human.Format(bytes, metric, decimals),
	})
}

func (h *Handler) handleConvert(c *gin.Context) {
	from, err := formatQuery(c, "from", converter.FormatJSON)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	to, err := formatQuery(c, "to", converter.FormatJSONL)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	indent, _ := strconv.ParseBool(c.Query("indent"))

	source, err := readBody(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	payload, err := h.converter.Convert(source, converter.Options{From: from, To: to, Indent: indent})
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	c.Data(http.StatusOK, converter.ContentType(to), payload)
}

func (h *Handler) handleListDatasets(c *gin.Context) {
	entries, err := h.store.List()
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": entries})
}

func (h *Handler) handleGetDataset(c *gin.Context) {
	payload, entry, err := h.store.Raw(c.Param("name"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.Header("Last-Modified", entry.Modified.Format(http.TimeFormat))
	c.Header("X-Content-Size", entry.HumanSize)
	c.Data(http.StatusOK, converter.ContentType(converter.FormatJSONL), payload)
}

func (h *Handler) handlePutDataset(c *gin.Context) {
	format, err := formatQuery(c, "format", converter.FormatJSONL)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	source, err := readBody(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	records, err := h.converter.Decode(source, format)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err)
		return
	}
	entry, err := h.store.Write(c.Param("name"), records)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dataset": entry, "records": len(records)})
}

func (h *Handler) handleDeleteDataset(c *gin.Context) {
	if err := h.store.Delete(c.Param("name")); err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidName):
		h.respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		h.respondError(c, http.StatusNotFound, err)
	default:
		h.respondError(c, http.StatusInternalServerError, err)
	}
}

func (h *Handler) respondError(c *gin.Context, code int, err error) {
	h.logger.Error("request error",
		slog.Any("error", err),
		slog.Int("status", code),
		slog.String("path", c.Request.URL.Path),
		slog.String(requestIDKey, c.GetString(requestIDKey)))
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func (h *Handler) identify(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Header("Server", version.Identifier())
	c.Next()
}

func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Info("request served",
		"remote_ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"bytes_out", human.FormatBytes(int64(max(c.Writer.Size(), 0))),
		"duration_ms", time.Since(start).Milliseconds(),
		requestIDKey, c.GetString(requestIDKey),
	)
}

func formatQuery(c *gin.Context, key string, fallback converter.Format) (converter.Format, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	format, err := converter.ParseFormat(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return format, nil
}

func readBody(c *gin.Context) ([]byte, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	defer body.Close()
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return payload, nil
}
