package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

// resultFinalizer turns a finalized capture into a rendered result.
type resultFinalizer struct {
	transcoder ports.Transcoder
	dispatcher ports.Dispatcher
	labels     ports.LabelMapper
	renderer   ports.Renderer
	events     ports.EventSink
	logger     *zap.Logger
}

func newResultFinalizer(
	transcoder ports.Transcoder,
	dispatcher ports.Dispatcher,
	labels ports.LabelMapper,
	renderer ports.Renderer,
	events ports.EventSink,
	logger *zap.Logger,
) resultFinalizer {
	return resultFinalizer{
		transcoder: transcoder,
		dispatcher: dispatcher,
		labels:     labels,
		renderer:   renderer,
		events:     events,
		logger:     logger,
	}
}

func (f resultFinalizer) FinalizeRecording(ctx context.Context, blob domain.Blob, task domain.Task) (domain.StopResult, domain.SessionStateReason, error) {
	encoded, err := f.transcoder.Transcode(ctx, blob)
	if err != nil {
		if ctx.Err() == nil {
			f.events.SessionError(domain.ErrorCodeTranscode, err.Error())
		}
		return domain.StopResult{}, domain.SessionReasonTranscodeFailed, err
	}

	result, err := f.dispatcher.Dispatch(ctx, encoded, task)
	if err != nil {
		return domain.StopResult{}, f.dispatchFailed(ctx, err), err
	}
	return f.present(task, encoded.Size(), result), domain.SessionReasonResultReady, nil
}

func (f resultFinalizer) FinalizeFrame(ctx context.Context, frame domain.Frame, task domain.Task) (domain.StopResult, domain.SessionStateReason, error) {
	result, err := f.dispatcher.DispatchFrame(ctx, frame, task)
	if err != nil {
		return domain.StopResult{}, f.dispatchFailed(ctx, err), err
	}
	return f.present(task, len(frame.Data), result), domain.SessionReasonResultReady, nil
}

// dispatchFailed reports the failure unless the view was torn down meanwhile.
func (f resultFinalizer) dispatchFailed(ctx context.Context, err error) domain.SessionStateReason {
	if ctx.Err() != nil {
		return domain.SessionReasonViewClosed
	}

	var malformed *domain.MalformedResponseError
	if errors.As(err, &malformed) {
		f.events.SessionError(domain.ErrorCodeResponse, err.Error())
		return domain.SessionReasonMalformedResponse
	}
	f.events.SessionError(domain.ErrorCodeDispatch, err.Error())
	return domain.SessionReasonDispatchFailed
}

func (f resultFinalizer) present(task domain.Task, size int, result domain.PredictionResult) domain.StopResult {
	mapped, err := f.labels.Map(result)
	if err != nil {
		f.logger.Warn("label mapping failed, rendering raw values", zap.Error(err))
		mapped = result
	}

	return domain.StopResult{
		Task:         task,
		Bytes:        size,
		Result:       mapped,
		Presentation: f.renderer.Render(task, mapped),
	}
}
