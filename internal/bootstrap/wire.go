package bootstrap

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"signsync/internal/config"
	"signsync/internal/dispatch"
	"signsync/internal/domain"
	"signsync/internal/labels"
	"signsync/internal/media"
	"signsync/internal/ports"
	"signsync/internal/render"
	"signsync/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.CaptureController
	Config     config.Config
	Logger     *zap.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := NewLogger(cfg.Log.Level)
	if err != nil {
		return Services{}, err
	}

	defaultTask, err := domain.ParseTask(cfg.Session.DefaultTask)
	if err != nil {
		return Services{}, fmt.Errorf("invalid default task: %w", err)
	}

	transcoder, err := media.NewTranscoder(cfg.Media.Transcode, cfg.Media.FFMPEGCommand)
	if err != nil {
		return Services{}, err
	}

	dispatcher, err := buildDispatcher(cfg.Relay, logger)
	if err != nil {
		return Services{}, err
	}

	labelMapper, err := labels.NewMapper(cfg.Labels.Path)
	if err != nil {
		return Services{}, err
	}

	controller := usecase.NewCaptureController(
		usecase.Dependencies{
			Devices:    media.NewFFMPEGDevices(cfg.Media.FFMPEGCommand),
			Transcoder: transcoder,
			Dispatcher: dispatcher,
			Labels:     labelMapper,
			Renderer:   render.New(),
			Events:     eventSink,
			Logger:     logger,
		},
		usecase.Config{
			Media: ports.MediaConfig{
				VideoEnabled: cfg.Media.VideoEnabled,
				AudioEnabled: cfg.Media.AudioEnabled,
				VideoFormat:  cfg.Media.VideoFormat,
				VideoDevice:  cfg.Media.VideoDevice,
				AudioFormat:  cfg.Media.AudioFormat,
				AudioDevice:  cfg.Media.AudioDevice,
				FrameRate:    cfg.Media.FrameRate,
				Width:        cfg.Media.Width,
				Height:       cfg.Media.Height,
				PreviewRate:  cfg.Media.PreviewRate,
			},
			ChunkSize:    cfg.Session.ChunkSize,
			DrainTimeout: cfg.Session.DrainTimeout,
			DefaultTask:  defaultTask,
		},
	)

	return Services{Controller: controller, Config: cfg, Logger: logger}, nil
}

func buildDispatcher(cfg config.RelayConfig, logger *zap.Logger) (*dispatch.Dispatcher, error) {
	recording, err := dispatch.RecordingTable(cfg.Topology)
	if err != nil {
		return nil, err
	}
	frame := dispatch.FrameTable()

	if cfg.EndpointsFile != "" {
		tables, err := dispatch.LoadTables(cfg.EndpointsFile)
		if err != nil {
			return nil, err
		}
		if tables.Recording != nil {
			recording = tables.Recording
		}
		if tables.Frame != nil {
			frame = tables.Frame
		}
		logger.Info("endpoint table loaded", zap.String("path", cfg.EndpointsFile))
	}

	return dispatch.New(dispatch.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		Recording: recording,
		Frame:     frame,
	}, logger), nil
}

// NewLogger builds a JSON logger at the given level. "debug" switches to the
// development console encoder.
func NewLogger(level string) (*zap.Logger, error) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if parsed == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}
