package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURL is returned for audio payloads that are not base64 data URLs.
var ErrInvalidDataURL = errors.New("audio must be a base64 data URL")

// DecodeAudioDataURL decodes "data:audio/...;base64,<payload>". The returned
// extension is ".webm" when the header mentions webm and ".wav" otherwise.
func DecodeAudioDataURL(dataURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrInvalidDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidDataURL
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidDataURL
	}

	ext := ".wav"
	if strings.Contains(strings.ToLower(header), "webm") {
		ext = ".webm"
	}
	return data, ext, nil
}
