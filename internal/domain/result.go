package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Label is an optional recognizer output. The relay may send class names as
// strings or raw class indices as numbers; both decode to text.
type Label struct {
	Value string
	Set   bool
}

func Some(value string) Label {
	return Label{Value: value, Set: true}
}

func (l Label) Present() bool {
	return l.Set && strings.TrimSpace(l.Value) != ""
}

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = Label{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Some(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*l = Some(strconv.FormatBool(b))
		return nil
	case '{', '[':
		return errors.New("label must be a string or number")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*l = Some(n.String())
		return nil
	}
}

func (l Label) MarshalJSON() ([]byte, error) {
	if !l.Set {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

// PredictionResult is the structured response keyed by task. An absent field
// means "not detected", which is distinct from a transport failure.
type PredictionResult struct {
	Emotion   Label `json:"emotion"`
	LeftHand  Label `json:"left_hand"`
	RightHand Label `json:"right_hand"`
	// Text carries verbatim output from response shapes without per-field keys.
	Text Label `json:"text"`
}

// PresentationField is one rendered line of a result.
type PresentationField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Detected bool   `json:"detected"`
}

// Presentation is the rendered form of a PredictionResult.
type Presentation struct {
	Task   Task                `json:"task"`
	Title  string              `json:"title"`
	Fields []PresentationField `json:"fields"`
	HTML   string              `json:"html"`
}
