package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"signsync/internal/domain"
)

// Config controls the relay client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Recording Resolver
	Frame     Resolver
}

// Dispatcher implements ports.Dispatcher over HTTP. It sends exactly one
// request per call and never retries.
type Dispatcher struct {
	client    *resty.Client
	recording Resolver
	frame     Resolver
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:5000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Recording == nil {
		cfg.Recording = PredictTable()
	}
	if cfg.Frame == nil {
		cfg.Frame = FrameTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Dispatcher{
		client:    client,
		recording: cfg.Recording,
		frame:     cfg.Frame,
		logger:    logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, blob domain.Blob, task domain.Task) (domain.PredictionResult, error) {
	return d.send(ctx, d.recording, task, payload{data: blob.Data, mediaType: blob.MediaType, fileName: blob.FileName})
}

func (d *Dispatcher) DispatchFrame(ctx context.Context, frame domain.Frame, task domain.Task) (domain.PredictionResult, error) {
	return d.send(ctx, d.frame, task, payload{data: frame.Data, mediaType: frame.MediaType, fileName: "frame.jpg"})
}

func (d *Dispatcher) send(ctx context.Context, resolver Resolver, task domain.Task, p payload) (domain.PredictionResult, error) {
	route, err := resolver.Resolve(task)
	if err != nil {
		return domain.PredictionResult{}, &domain.DispatchError{Endpoint: string(task), Err: err}
	}

	req := d.client.R().SetContext(ctx)
	if err := applyBody(req, route, p); err != nil {
		return domain.PredictionResult{}, &domain.DispatchError{Endpoint: route.Path, Err: err}
	}

	started := time.Now()
	resp, err := req.Post(route.Path)
	if err != nil {
		return domain.PredictionResult{}, &domain.DispatchError{Endpoint: route.Path, Err: err}
	}

	d.logger.Debug("relay responded",
		zap.String("endpoint", route.Path),
		zap.String("task", string(task)),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes_sent", len(p.data)),
		zap.Duration("elapsed", time.Since(started)))

	if !resp.IsSuccess() {
		return domain.PredictionResult{}, &domain.DispatchError{
			Endpoint:   route.Path,
			StatusCode: resp.StatusCode(),
			Detail:     errorDetail(resp.Body()),
		}
	}

	result, err := parseResponse(route.Response, resp.Body())
	if err != nil {
		return domain.PredictionResult{}, &domain.MalformedResponseError{Endpoint: route.Path, Err: err}
	}
	return result, nil
}
