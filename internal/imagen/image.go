package imagen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MIMEJPEG is the output format requested from every backend
const MIMEJPEG = "image/jpeg"

// Image is one generated image payload
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL returns the image as a self-describing base64 data URL
func (img *Image) DataURL() string {
	mime := img.MIMEType
	if mime == "" {
		mime = MIMEJPEG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Clone returns a deep copy of the image
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	data := make([]byte, len(img.Data))
	copy(data, img.Data)
	return &Image{Data: data, MIMEType: img.MIMEType}
}

// ParseDataURL decodes a base64 data URL produced by DataURL
func ParseDataURL(s string) (*Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URL has no payload")
	}

	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, fmt.Errorf("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return &Image{Data: data, MIMEType: mime}, nil
}
