package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"signsync/internal/domain"
)

var errNotObject = errors.New("response body is not a JSON object")

func parseResponse(kind ResponseKind, body []byte) (domain.PredictionResult, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return domain.PredictionResult{}, err
	}

	var result domain.PredictionResult
	switch kind {
	case ResponsePrediction:
		if err := decodeLabels(fields, map[string]*domain.Label{
			"emotion":    &result.Emotion,
			"left_hand":  &result.LeftHand,
			"right_hand": &result.RightHand,
		}); err != nil {
			return domain.PredictionResult{}, err
		}
	case ResponseResult:
		err = decodeLabels(fields, map[string]*domain.Label{"result": &result.Text})
	case ResponseOutput:
		err = decodeLabels(fields, map[string]*domain.Label{"output": &result.Text})
	case ResponseAck:
		err = decodeLabels(fields, map[string]*domain.Label{"message": &result.Text})
	default:
		return domain.PredictionResult{}, fmt.Errorf("unsupported response kind %q", kind)
	}
	if err != nil {
		return domain.PredictionResult{}, err
	}
	return result, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

func decodeLabels(fields map[string]json.RawMessage, targets map[string]*domain.Label) error {
	for key, target := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// errorDetail pulls the relay's error message out of a failure body.
func errorDetail(body []byte) string {
	fields, err := decodeObject(body)
	if err != nil {
		return strings.TrimSpace(truncate(string(body), 200))
	}
	for _, key := range []string{"error", "message"} {
		var label domain.Label
		if raw, ok := fields[key]; ok && json.Unmarshal(raw, &label) == nil && label.Present() {
			return label.Value
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
