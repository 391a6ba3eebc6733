package render

import (
	"github.com/flosch/pongo2/v6"

	"signsync/internal/domain"
)

const title = "Prediction Results"

// Placeholders shown when a field was not detected.
const (
	NoFace      = "No face detected"
	NoLeftHand  = "No left hand detected"
	NoRightHand = "No right hand detected"
)

var resultTemplate = pongo2.Must(pongo2.FromString(`<h3>{{ title }}</h3>
{% for field in fields %}<p class="{% if field.detected %}detected{% else %}missing{% endif %}"><strong>{{ field.label }}:</strong> {{ field.value }}</p>
{% endfor %}`))

type fieldDef struct {
	key         string
	label       string
	placeholder string
	value       func(domain.PredictionResult) domain.Label
}

var (
	emotionField = fieldDef{key: "emotion", label: "Emotion", placeholder: NoFace,
		value: func(r domain.PredictionResult) domain.Label { return r.Emotion }}
	leftHandField = fieldDef{key: "left_hand", label: "Left Hand", placeholder: NoLeftHand,
		value: func(r domain.PredictionResult) domain.Label { return r.LeftHand }}
	rightHandField = fieldDef{key: "right_hand", label: "Right Hand", placeholder: NoRightHand,
		value: func(r domain.PredictionResult) domain.Label { return r.RightHand }}
)

var taskFields = map[domain.Task][]fieldDef{
	domain.TaskEmotion: {emotionField},
	domain.TaskSign:    {leftHandField, rightHandField},
	domain.TaskBoth:    {emotionField, leftHandField, rightHandField},
}

// Renderer implements ports.Renderer.
type Renderer struct{}

func New() Renderer {
	return Renderer{}
}

func (Renderer) Render(task domain.Task, result domain.PredictionResult) domain.Presentation {
	return Render(task, result)
}

// Render builds the presentation for task. Every field that belongs to the
// task is present, with a placeholder when the relay did not detect it. A
// verbatim text answer with no structured fields renders as its Result row only.
func Render(task domain.Task, result domain.PredictionResult) domain.Presentation {
	if !task.Valid() {
		task = domain.DefaultTask
	}

	defs := taskFields[task]
	fields := make([]domain.PresentationField, 0, len(defs)+1)
	if !result.Text.Present() || anyDetected(defs, result) {
		for _, def := range defs {
			fields = append(fields, buildField(def, def.value(result)))
		}
	}
	if result.Text.Present() {
		fields = append(fields, domain.PresentationField{
			Key:      "result",
			Label:    "Result",
			Value:    result.Text.Value,
			Detected: true,
		})
	}

	return domain.Presentation{
		Task:   task,
		Title:  title,
		Fields: fields,
		HTML:   renderHTML(fields),
	}
}

func anyDetected(defs []fieldDef, result domain.PredictionResult) bool {
	for _, def := range defs {
		if def.value(result).Present() {
			return true
		}
	}
	return false
}

func buildField(def fieldDef, label domain.Label) domain.PresentationField {
	field := domain.PresentationField{Key: def.key, Label: def.label, Value: def.placeholder}
	if label.Present() {
		field.Value = label.Value
		field.Detected = true
	}
	return field
}

func renderHTML(fields []domain.PresentationField) string {
	rows := make([]pongo2.Context, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, pongo2.Context{"label": f.Label, "value": f.Value, "detected": f.Detected})
	}

	out, err := resultTemplate.Execute(pongo2.Context{"title": title, "fields": rows})
	if err != nil {
		return ""
	}
	return out
}
