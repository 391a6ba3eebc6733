package dispatch

import (
	"fmt"
	"strings"

	"signsync/internal/domain"
)

// BodyKind selects how a capture is encoded into the request.
type BodyKind string

const (
	// BodyMultipart sends the bytes as a multipart file part.
	BodyMultipart BodyKind = "multipart"
	// BodyVideoJSON sends {"<field>": "<base64>"}.
	BodyVideoJSON BodyKind = "video_json"
	// BodyImageJSON sends {"<field>": "data:<type>;base64,<data>"}.
	BodyImageJSON BodyKind = "image_json"
)

// ResponseKind selects how the relay's reply is parsed.
type ResponseKind string

const (
	ResponsePrediction ResponseKind = "prediction"
	ResponseResult     ResponseKind = "result"
	ResponseOutput     ResponseKind = "output"
	ResponseAck        ResponseKind = "ack"
)

// Recording topologies.
const (
	TopologyPredict = "predict"
	TopologyAnalyze = "analyze"
	TopologyUpload  = "upload"
)

// Route is the relay contract for one task.
type Route struct {
	Path     string       `mapstructure:"path" validate:"required"`
	Body     BodyKind     `mapstructure:"body" validate:"required,oneof=multipart video_json image_json"`
	Response ResponseKind `mapstructure:"response" validate:"required,oneof=prediction result output ack"`
	Field    string       `mapstructure:"field"`
	FileName string       `mapstructure:"file_name"`
}

func (r Route) field() string {
	if r.Field != "" {
		return r.Field
	}
	if r.Body == BodyImageJSON {
		return "image"
	}
	return "video"
}

// Resolver maps a task to its route. Implementations must be pure.
type Resolver interface {
	Resolve(task domain.Task) (Route, error)
}

// Table is a fixed task → route binding.
type Table map[domain.Task]Route

func (t Table) Resolve(task domain.Task) (Route, error) {
	route, ok := t[task]
	if !ok {
		return Route{}, fmt.Errorf("no route configured for task %q", task)
	}
	return route, nil
}

// PredictTable posts recordings to /predict/{task}.
func PredictTable() Table {
	table := Table{}
	for _, task := range domain.Tasks() {
		table[task] = Route{
			Path:     "/predict/" + string(task),
			Body:     BodyMultipart,
			Response: ResponsePrediction,
			Field:    "video",
		}
	}
	return table
}

// AnalyzeTable sends every task to the single analyze endpoint.
func AnalyzeTable() Table {
	return sameRoute(Route{Path: "/api/model/analyze", Body: BodyVideoJSON, Response: ResponseResult, Field: "video"})
}

// UploadTable stores recordings through the relay's upload endpoint.
func UploadTable() Table {
	return sameRoute(Route{Path: "/api/video/upload", Body: BodyMultipart, Response: ResponseAck, Field: "video"})
}

// FrameTable posts single frames to the per-task detection endpoints.
func FrameTable() Table {
	paths := map[domain.Task]string{
		domain.TaskEmotion: "/emotion_detection",
		domain.TaskSign:    "/sign_language",
		domain.TaskBoth:    "/both",
	}
	table := Table{}
	for task, path := range paths {
		table[task] = Route{Path: path, Body: BodyImageJSON, Response: ResponseOutput, Field: "image"}
	}
	return table
}

// RecordingTable returns the built-in table for a topology name.
func RecordingTable(topology string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(topology)) {
	case "", TopologyPredict:
		return PredictTable(), nil
	case TopologyAnalyze:
		return AnalyzeTable(), nil
	case TopologyUpload:
		return UploadTable(), nil
	default:
		return nil, fmt.Errorf("unknown recording topology %q", topology)
	}
}

func sameRoute(route Route) Table {
	table := Table{}
	for _, task := range domain.Tasks() {
		table[task] = route
	}
	return table
}
