package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imagebatch/internal/blob"
	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

type Submitter interface {
	Submit(ctx context.Context, data []byte) (string, error)
}

type ResultReader interface {
	GetStatus(ctx context.Context, id string) (models.Request, error)
	Export(ctx context.Context, id string) ([]byte, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	msgNoFile       = "No file uploaded"
	msgEmptyCSV     = "Empty CSV file uploaded"
	msgInvalidCSV   = "Invalid CSV format"
	msgInternal     = "Internal server error"
	msgNotFound     = "Request not found"
	msgNoData       = "No data available"
	exportFilename  = "output_images.csv"
	uploadFormField = "file"
)

type Server struct {
	cfg     *models.Config
	router  *gin.Engine
	http    *http.Server
	batches Submitter
	reader  ResultReader
	health  Pinger
}

func NewServer(cfg *models.Config, batches Submitter, reader ResultReader, health Pinger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger())
	r.Static(blob.PublicPath, cfg.StoragePath)

	s := &Server{
		cfg:     cfg,
		router:  r,
		batches: batches,
		reader:  reader,
		health:  health,
		http:    &http.Server{Addr: cfg.ServerAddr, Handler: r},
	}

	r.POST("/upload", s.handleUpload)
	r.GET("/status/:requestId", s.handleStatus)
	r.GET("/export/:requestId", s.handleExport)
	r.GET("/ping", s.handlePing)

	return s
}

func (s *Server) Start() error {
	logger.Log.Info("starting server", zap.String("addr", s.cfg.ServerAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	file, err := c.FormFile(uploadFormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoFile})
		return
	}

	src, err := file.Open()
	if err != nil {
		logger.Log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		logger.Log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	// The batch outlives a dropped client connection.
	ctx := context.WithoutCancel(c.Request.Context())
	id, err := s.batches.Submit(ctx, data)
	if err != nil {
		var se *models.SchemaError
		switch {
		case errors.Is(err, models.ErrEmptyInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyCSV})
		case errors.As(err, &se):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidCSV + ". Missing column: " + se.Column})
		case errors.Is(err, models.ErrMalformedCSV):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidCSV})
		default:
			logger.Log.Error(op, zap.String("filename", file.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"requestId": id})
}

func (s *Server) handleStatus(c *gin.Context) {
	const op = "server.handleStatus"

	req, err := s.reader.GetStatus(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
			return
		}
		logger.Log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, req)
}

func (s *Server) handleExport(c *gin.Context) {
	const op = "server.handleExport"

	data, err := s.reader.Export(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgNoData})
			return
		}
		logger.Log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (s *Server) handlePing(c *gin.Context) {
	if err := s.health.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
