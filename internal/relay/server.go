package relay

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signsync/internal/domain"
)

// Fixed replies of the development relay. It performs no inference.
const (
	AnalyzeResult  = "Sign Language Recognized: Hello"
	UploadAccepted = "Video uploaded successfully!"
	UploadMissing  = "No video uploaded!"
)

// Options configures the development relay.
type Options struct {
	UploadDir string
	Logger    *zap.Logger
	// Predictions overrides the canned /predict replies per task.
	Predictions map[domain.Task]map[string]any
}

type analyzeRequest struct {
	Video string `json:"video" validate:"required,base64"`
}

type frameRequest struct {
	Image string `json:"image" validate:"required,datauri"`
}

type server struct {
	uploadDir   string
	logger      *zap.Logger
	validate    *validator.Validate
	predictions map[domain.Task]map[string]any
}

// NewEngine builds the relay routes with CORS enabled for any origin.
func NewEngine(opts Options) *gin.Engine {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Predictions == nil {
		opts.Predictions = DefaultPredictions()
	}

	s := &server{
		uploadDir:   opts.UploadDir,
		logger:      opts.Logger,
		validate:    validator.New(),
		predictions: opts.Predictions,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.accessLog())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.POST("/predict/:task", s.predict)
	engine.POST("/api/model/analyze", s.analyze)
	engine.POST("/api/video/upload", s.upload)
	engine.POST("/emotion_detection", s.frame(domain.TaskEmotion))
	engine.POST("/sign_language", s.frame(domain.TaskSign))
	engine.POST("/both", s.frame(domain.TaskBoth))
	return engine
}

// DefaultPredictions mirrors the recognizer's reply shapes: class indices for
// detected features and a placeholder string otherwise.
func DefaultPredictions() map[domain.Task]map[string]any {
	return map[domain.Task]map[string]any{
		domain.TaskEmotion: {"emotion": 3},
		domain.TaskSign:    {"left_hand": 0, "right_hand": "No right hand detected"},
		domain.TaskBoth:    {"emotion": 3, "left_hand": 0, "right_hand": "No right hand detected"},
	}
}

func (s *server) predict(c *gin.Context) {
	task, err := domain.ParseTask(c.Param("task"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file received"})
		return
	}
	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No frames extracted from video"})
		return
	}

	s.logger.Info("prediction request",
		zap.String("task", string(task)),
		zap.String("file", file.Filename),
		zap.Int64("bytes", file.Size))
	c.JSON(http.StatusOK, s.predictions[task])
}

func (s *server) analyze(c *gin.Context) {
	var req analyzeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": AnalyzeResult})
}

func (s *server) upload(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": UploadMissing})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.logger.Error("upload dir unavailable", zap.String("dir", s.uploadDir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload directory unavailable"})
		return
	}

	name := uuid.NewString() + uploadExt(file.Filename)
	dest := filepath.Join(s.uploadDir, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		s.logger.Error("failed to save upload", zap.String("path", dest), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save video"})
		return
	}

	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	s.logger.Info("video uploaded", zap.String("path", dest), zap.Int64("bytes", file.Size))
	c.JSON(http.StatusOK, gin.H{"message": UploadAccepted, "filePath": dest})
}

func (s *server) frame(task domain.Task) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frameRequest
		if !s.bindJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"output": frameOutput(task)})
	}
}

func (s *server) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	if err := s.validate.Struct(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return false
	}
	return true
}

func (s *server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("relay request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)))
	}
}

func frameOutput(task domain.Task) string {
	switch task {
	case domain.TaskSign:
		return "Sign: Hello"
	case domain.TaskBoth:
		return "Emotion: Happy, Sign: Hello"
	default:
		return "Emotion: Happy"
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := strings.ToLower(fieldErrs[0].Field())
		if fieldErrs[0].Tag() == "required" {
			return "missing '" + field + "' in request"
		}
		return "invalid '" + field + "' in request"
	}
	return err.Error()
}

func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 8 {
		return ".webm"
	}
	return ext
}
