package dispatch

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"

	"signsync/internal/domain"
)

type payload struct {
	data      []byte
	mediaType string
	fileName  string
}

func applyBody(req *resty.Request, route Route, p payload) error {
	switch route.Body {
	case BodyMultipart:
		fileName := route.FileName
		if fileName == "" {
			fileName = p.fileName
		}
		if fileName == "" {
			fileName = "video.webm"
		}
		mediaType := p.mediaType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		req.SetMultipartField(route.field(), fileName, mediaType, bytes.NewReader(p.data))
		return nil
	case BodyVideoJSON:
		req.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{route.field(): base64.StdEncoding.EncodeToString(p.data)})
		return nil
	case BodyImageJSON:
		req.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{route.field(): DataURL(p.mediaType, p.data)})
		return nil
	default:
		return fmt.Errorf("unsupported body kind %q", route.Body)
	}
}

// DataURL encodes bytes the way a canvas toDataURL call does.
func DataURL(mediaType string, data []byte) string {
	return domain.Frame{Data: data, MediaType: mediaType}.DataURL()
}
