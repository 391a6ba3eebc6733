package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"signsync/internal/bootstrap"
	"signsync/internal/config"
	"signsync/internal/domain"
	"signsync/internal/usecase"
)

const (
	eventSession = "signsync:session"
	eventTask    = "signsync:task"
	eventResult  = "signsync:result"
	eventPreview = "signsync:preview"
	eventError   = "signsync:error"
)

// App is the Wails application root. The capture controller emits every UI
// event; bound methods only return its results.
type App struct {
	ctx context.Context

	controller *usecase.CaptureController
	cfg        config.Config
	logger     *zap.Logger
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.logger = services.Logger
	a.SessionStateChanged(domain.SessionStateCold, domain.SessionReasonCameraCold)

	// Acquisition happens once per view; failures are reported as events.
	_ = a.controller.Acquire(ctx)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller == nil {
		return
	}
	if err := a.controller.Close(); err != nil && a.logger != nil {
		a.logger.Warn("failed to release capture devices", zap.Error(err))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// StartRecording starts (or restarts) a recording.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopRecording finalizes the recording and returns the rendered result.
func (a *App) StopRecording() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	return a.controller.Stop(a.ctx)
}

// CaptureFrame sends a single still for the selected task.
func (a *App) CaptureFrame() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	return a.controller.Capture(a.ctx)
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Abort()
}

// SelectTask changes the prediction task.
func (a *App) SelectTask(task string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	parsed, err := domain.ParseTask(task)
	if err != nil {
		return err
	}
	return a.controller.SelectTask(parsed)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateCold, Task: domain.DefaultTask}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"relay":         a.cfg.Relay.BaseURL,
		"topology":      a.cfg.Relay.Topology,
		"endpointsFile": a.cfg.Relay.EndpointsFile,
		"labelsFile":    a.cfg.Labels.Path,
		"videoInput":    a.cfg.Media.VideoDevice,
		"videoFormat":   a.cfg.Media.VideoFormat,
		"audioEnabled":  fmt.Sprintf("%t", a.cfg.Media.AudioEnabled),
		"transcode":     a.cfg.Media.Transcode,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// TaskChanged emits the newly selected task.
func (a *App) TaskChanged(task domain.Task) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTask, map[string]string{"task": string(task)})
}

// ResultReady emits a rendered prediction.
func (a *App) ResultReady(presentation domain.Presentation) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResult, presentation)
}

// PreviewFrame emits a live camera frame as a data URL.
func (a *App) PreviewFrame(frame domain.Frame) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPreview, map[string]string{"image": frame.DataURL()})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonCameraCold:
		return "Camera not started"
	case domain.SessionReasonDeviceReady:
		return "Camera ready"
	case domain.SessionReasonAcquisitionFailed:
		return "Could not access camera"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous capture discarded"
	case domain.SessionReasonFinalizing:
		return "Recording stopped"
	case domain.SessionReasonDispatching:
		return "Sending video for prediction..."
	case domain.SessionReasonFrameCaptured:
		return "Frame captured. Sending for prediction..."
	case domain.SessionReasonResultReady:
		return "Prediction ready"
	case domain.SessionReasonNoVideo:
		return "No video captured"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonTranscodeFailed:
		return "Could not prepare video"
	case domain.SessionReasonDispatchFailed:
		return "Prediction request failed"
	case domain.SessionReasonMalformedResponse:
		return "Unexpected prediction response"
	case domain.SessionReasonViewClosed:
		return "Camera released"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAcquisition:
		return "Camera access failed"
	case domain.ErrorCodeSequence:
		return "Camera not ready"
	case domain.ErrorCodeRecording:
		return "Recording issue"
	case domain.ErrorCodeTranscode:
		return "Video conversion failed"
	case domain.ErrorCodeDispatch:
		return "Prediction request failed"
	case domain.ErrorCodeResponse:
		return "Unexpected prediction response"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
