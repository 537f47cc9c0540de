// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assist

import (
	"context"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/keygate/internal/platform/apperr"
)

// textualTypes are accepted besides the text/* family.
var textualTypes = map[string]struct{}{
	"application/json":     {},
	"application/x-ndjson": {},
	"application/xml":      {},
	"application/yaml":     {},
}

// PlainTextProcessor accepts UTF-8 text documents and returns them NFC-normalized.
type PlainTextProcessor struct{}

// NewPlainTextProcessor creates a [PlainTextProcessor].
func NewPlainTextProcessor() *PlainTextProcessor {
	return &PlainTextProcessor{}
}

/*
ProcessDocument validates the media type and encoding of data.

Returns:
  - *ProcessedDocument: text plus name, mime_type, bytes, characters and lines
  - error: 415 for binary or unknown media types
*/
func (processor *PlainTextProcessor) ProcessDocument(_ context.Context, data []byte, mimeType, name string) (*ProcessedDocument, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !isTextual(mediaType) {
		return nil, apperr.UnsupportedMedia("Unsupported document type: " + mimeType)
	}

	if !utf8.Valid(data) {
		return nil, apperr.UnsupportedMedia("Document is not valid UTF-8 text")
	}

	text := norm.NFC.String(string(data))
	return &ProcessedDocument{
		Success: true,
		Text:    text,
		Metadata: map[string]any{
			"name":       name,
			"mime_type":  mediaType,
			"bytes":      len(data),
			"characters": utf8.RuneCountInString(text),
			"lines":      countLines(text),
		},
	}, nil
}

func isTextual(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	_, ok := textualTypes[mediaType]
	return ok
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}

var _ DocumentProcessor = (*PlainTextProcessor)(nil)
