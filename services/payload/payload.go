// Package payload decodes base64 uploads and settles their MIME type.
package payload

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/meghashyamc/bioagents/services/errs"
)

const genericMIMEType = "application/octet-stream"

// Decode accepts plain base64 (standard or URL alphabet, padded or not) or a data URL.
// For data URLs the embedded MIME type is returned as well.
func Decode(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", errs.Validation("payload is empty")
	}

	declared := ""
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", errs.Validation("payload data url is not base64 encoded")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = body
	}

	encoded = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, encoded)

	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := encoding.DecodeString(encoded); err == nil && len(data) > 0 {
			return data, declared, nil
		}
	}

	return nil, "", errs.Validation("payload is not valid base64")
}

// ResolveMIME sniffs data and returns the matching allowed type. A declared type is
// trusted only when sniffing is inconclusive.
func ResolveMIME(data []byte, declared string, allowed []string) (string, error) {
	detected := mimetype.Detect(data)
	for _, candidate := range allowed {
		if detected.Is(candidate) {
			return candidate, nil
		}
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if detected.Is(genericMIMEType) {
		for _, candidate := range allowed {
			if declared == candidate {
				return candidate, nil
			}
		}
	}

	found := detected.String()
	if detected.Is(genericMIMEType) && declared != "" {
		found = declared
	}

	return "", errs.Validation("unsupported file type " + found)
}
