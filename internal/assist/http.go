// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assist

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/constants"
	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/middleware"
	requestutil "github.com/taibuivan/keygate/internal/platform/request"
	"github.com/taibuivan/keygate/internal/platform/respond"
	"github.com/taibuivan/keygate/internal/platform/validate"
)

const (
	fieldFile     = "file"
	fieldQuestion = "question"
	fieldContext  = "context"

	maxQuestionLength = 4000
	maxContextLength  = 100000

	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 64 << 10
)

// Handler implements POST /upload and POST /ask.
type Handler struct {
	processor DocumentProcessor
	invoker   Invoker
	gate      *middleware.Gate
	maxUpload int64
}

// NewHandler constructs a new [Handler]. maxUpload caps the uploaded file size.
func NewHandler(processor DocumentProcessor, invoker Invoker, gate *middleware.Gate, maxUpload int64) *Handler {
	return &Handler{processor: processor, invoker: invoker, gate: gate, maxUpload: maxUpload}
}

// Routes returns a [chi.Router] with both endpoints behind the gate.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(handler.gate.Authenticate)
		r.Post("/upload", handler.upload)
		r.Post("/ask", handler.ask)
	})

	return router
}

/*
POST /upload.

Request: multipart/form-data with a single "file" part.

Response:
  - 200: {success, text, metadata}
  - 400: Missing file or oversized body
  - 401/403: Authentication failures
  - 415: Unsupported document type
*/
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, handler.maxUpload+multipartOverhead)

	file, header, err := request.FormFile(fieldFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(writer, request, apperr.ValidationError("Upload exceeds the size limit"))
			return
		}
		respond.Error(writer, request, validate.RequiredError(fieldFile, "A file part is required"))
		return
	}
	defer file.Close()

	if header.Size > handler.maxUpload {
		respond.Error(writer, request, apperr.ValidationError("Upload exceeds the size limit"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, handler.maxUpload+1))
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}
	if int64(len(data)) > handler.maxUpload {
		respond.Error(writer, request, apperr.ValidationError("Upload exceeds the size limit"))
		return
	}

	mimeType := header.Header.Get(constants.HeaderContentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	document, err := handler.processor.ProcessDocument(request.Context(), data, mimeType, header.Filename)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := request.Context()
	ctxutil.GetLogger(ctx).InfoContext(ctx, "document_processed",
		slog.String("mime_type", mimeType),
		slog.Int("bytes", len(data)),
	)
	respond.OK(writer, document)
}

type askRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

/*
POST /ask.

Request: {question, context?}

Response:
  - 200: {content}
  - 400: Missing or oversized question
  - 401/403: Authentication failures
  - 502: Upstream model failure
  - 503: No model configured
*/
func (handler *Handler) ask(writer http.ResponseWriter, request *http.Request) {
	var input askRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	question := strings.TrimSpace(input.Question)
	validator := &validate.Validator{}
	if err := validator.
		Required(fieldQuestion, question).
		MaxLen(fieldQuestion, question, maxQuestionLength).
		MaxLen(fieldContext, input.Context, maxContextLength).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	completion, err := handler.invoker.Invoke(request.Context(), FormatPrompt(question, input.Context))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, completion)
}

// FormatPrompt renders the question, preceded by the reference text when given.
func FormatPrompt(question, reference string) string {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return question
	}

	var builder strings.Builder
	builder.WriteString("Answer the question using the document below.\n\n")
	builder.WriteString("Document:\n")
	builder.WriteString(reference)
	builder.WriteString("\n\nQuestion: ")
	builder.WriteString(question)
	return builder.String()
}
