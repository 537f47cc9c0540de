// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package assist exposes the document and question endpoints that sit behind the
authentication gate.

The heavy lifting is delegated to two collaborators:

  - [DocumentProcessor]: turns an uploaded file into text.
  - [Invoker]: sends a prompt to a language model.

Both are interfaces so deployments can plug in richer implementations. The
package ships a plain-text processor and an OpenAI-compatible invoker.
*/
package assist

import "context"

// ProcessedDocument is the outcome of a document conversion.
type ProcessedDocument struct {
	Success  bool           `json:"success"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// DocumentProcessor extracts text from raw file bytes.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, data []byte, mimeType, name string) (*ProcessedDocument, error)
}

// Completion is a model answer.
type Completion struct {
	Content string `json:"content"`
}

// Invoker runs a single prompt against a language model.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (*Completion, error)
}
