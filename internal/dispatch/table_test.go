package dispatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signsync/internal/domain"
)

func TestPredictTableResolveIsPure(t *testing.T) {
	t.Parallel()

	table := PredictTable()
	for i := 0; i < 3; i++ {
		route, err := table.Resolve(domain.TaskSign)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if route.Path != "/predict/sign" || route.Body != BodyMultipart || route.Response != ResponsePrediction {
			t.Fatalf("unexpected route: %+v", route)
		}
	}

	for _, task := range domain.Tasks() {
		route, err := table.Resolve(task)
		if err != nil || route.Path != "/predict/"+string(task) {
			t.Fatalf("unexpected route for %s: %+v err=%v", task, route, err)
		}
	}
}

func TestRecordingTableTopologies(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":        "/predict/emotion",
		"predict": "/predict/emotion",
		"Analyze": "/api/model/analyze",
		"upload":  "/api/video/upload",
	}
	for topology, want := range cases {
		table, err := RecordingTable(topology)
		if err != nil {
			t.Fatalf("%q: %v", topology, err)
		}
		route, _ := table.Resolve(domain.TaskEmotion)
		if route.Path != want {
			t.Fatalf("%q: expected %s, got %s", topology, want, route.Path)
		}
	}

	if _, err := RecordingTable("grpc"); err == nil {
		t.Fatalf("expected unknown topology error")
	}
}

func TestRouteFieldDefaults(t *testing.T) {
	t.Parallel()

	if got := (Route{Body: BodyMultipart}).field(); got != "video" {
		t.Fatalf("unexpected multipart field: %q", got)
	}
	if got := (Route{Body: BodyImageJSON}).field(); got != "image" {
		t.Fatalf("unexpected image field: %q", got)
	}
	if got := (Route{Body: BodyVideoJSON, Field: "clip"}).field(); got != "clip" {
		t.Fatalf("unexpected explicit field: %q", got)
	}
}

func TestLoadTablesYAML(t *testing.T) {
	t.Parallel()

	path := writeTableFile(t, "endpoints.yaml", `
recording:
  emotion: {path: /v2/emotion, body: multipart, response: prediction, file_name: clip.mp4}
  sign: {path: /v2/sign, body: multipart, response: prediction}
  both: {path: "https://ml.example.com/both", body: video_json, response: result}
`)

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if tables.Frame != nil {
		t.Fatalf("expected frame section to be absent")
	}
	route, err := tables.Recording.Resolve(domain.TaskEmotion)
	if err != nil || route.Path != "/v2/emotion" || route.FileName != "clip.mp4" {
		t.Fatalf("unexpected emotion route: %+v err=%v", route, err)
	}
	route, _ = tables.Recording.Resolve(domain.TaskBoth)
	if route.Body != BodyVideoJSON || route.Response != ResponseResult {
		t.Fatalf("unexpected both route: %+v", route)
	}
}

func TestLoadTablesTOMLFrameSection(t *testing.T) {
	t.Parallel()

	path := writeTableFile(t, "endpoints.toml", `
[frame.emotion]
path = "/emotion_detection"
body = "image_json"
response = "output"

[frame.sign]
path = "/sign_language"
body = "image_json"
response = "output"

[frame.both]
path = "/both"
body = "image_json"
response = "output"
`)

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if tables.Recording != nil {
		t.Fatalf("expected recording section to be absent")
	}
	if route, _ := tables.Frame.Resolve(domain.TaskSign); route.Path != "/sign_language" {
		t.Fatalf("unexpected frame route: %+v", route)
	}
}

func TestLoadTablesRejectsInvalidTables(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad body": `
recording:
  emotion: {path: /a, body: xml, response: prediction}
  sign: {path: /b, body: multipart, response: prediction}
  both: {path: /c, body: multipart, response: prediction}
`,
		"missing task": `
recording:
  emotion: {path: /a, body: multipart, response: prediction}
`,
		"unknown task": `
recording:
  emotion: {path: /a, body: multipart, response: prediction}
  sign: {path: /b, body: multipart, response: prediction}
  both: {path: /c, body: multipart, response: prediction}
  gesture: {path: /d, body: multipart, response: prediction}
`,
		"relative path": `
recording:
  emotion: {path: predict, body: multipart, response: prediction}
  sign: {path: /b, body: multipart, response: prediction}
  both: {path: /c, body: multipart, response: prediction}
`,
	}

	for name, contents := range cases {
		contents := contents
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadTables(writeTableFile(t, "endpoints.yaml", contents)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadTablesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read endpoint table") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func writeTableFile(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}
