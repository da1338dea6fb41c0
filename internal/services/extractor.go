package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"prepple/interview-api/internal/logger"
)

type DocumentFormat string

const (
	FormatUnknown DocumentFormat = ""
	FormatPDF     DocumentFormat = "pdf"
	FormatDOCX    DocumentFormat = "docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ExtractionReason says why a résumé produced no text. Empty means success.
type ExtractionReason string

const (
	ReasonNone              ExtractionReason = ""
	ReasonNoDocument        ExtractionReason = "no_document"
	ReasonAccessDenied      ExtractionReason = "access_denied"
	ReasonFetchFailed       ExtractionReason = "fetch_failed"
	ReasonUnsupportedFormat ExtractionReason = "unsupported_format"
	ReasonParseFailed       ExtractionReason = "parse_failed"
	ReasonEmptyDocument     ExtractionReason = "empty_document"
)

type ExtractionResult struct {
	Text   string
	Format DocumentFormat
	Reason ExtractionReason
	Detail string
}

func (r ExtractionResult) OK() bool {
	return r.Reason == ReasonNone
}

func Degraded(reason ExtractionReason, detail string) ExtractionResult {
	return ExtractionResult{Reason: reason, Detail: detail}
}

// DocumentTextExtractor never fails: problems are reported through
// ExtractionResult.Reason with empty text so evaluation can carry on.
type DocumentTextExtractor interface {
	Extract(content []byte, declaredMediaType, sourceURL string) ExtractionResult
	ExtractFromURL(ctx context.Context, sourceURL string) ExtractionResult
}

type documentTextExtractor struct {
	client   *http.Client
	maxBytes int64
	parsers  map[DocumentFormat]documentParser
	log      *zap.Logger
}

func NewDocumentTextExtractor(maxBytes int64, log *zap.Logger) DocumentTextExtractor {
	return &documentTextExtractor{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxBytes,
		parsers: map[DocumentFormat]documentParser{
			FormatPDF:  pdfParser{},
			FormatDOCX: docxParser{},
		},
		log: logger.OrNop(log),
	}
}

// DetectFormat combines the URL suffix, the declared media type and, as a
// last resort, the content's magic bytes. The suffix wins on conflict.
func DetectFormat(content []byte, declaredMediaType, sourceURL string) DocumentFormat {
	switch strings.ToLower(path.Ext(urlPath(sourceURL))) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	}

	mediaType := strings.ToLower(declaredMediaType)
	switch {
	case strings.Contains(mediaType, "pdf"):
		return FormatPDF
	case strings.Contains(mediaType, "wordprocessingml.document"):
		return FormatDOCX
	}

	if len(content) == 0 {
		return FormatUnknown
	}
	detected := mimetype.Detect(content)
	switch {
	case detected.Is(mimePDF):
		return FormatPDF
	case detected.Is(mimeDOCX):
		return FormatDOCX
	}
	return FormatUnknown
}

func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// Extract implements DocumentTextExtractor.
func (e *documentTextExtractor) Extract(content []byte, declaredMediaType, sourceURL string) ExtractionResult {
	format := DetectFormat(content, declaredMediaType, sourceURL)
	parser, ok := e.parsers[format]
	if !ok {
		return e.degrade(Degraded(ReasonUnsupportedFormat, fmt.Sprintf("media type %q", declaredMediaType)))
	}

	text, err := parser.Parse(content)
	if err != nil {
		result := Degraded(ReasonParseFailed, err.Error())
		result.Format = format
		return e.degrade(result)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		result := Degraded(ReasonEmptyDocument, "no text content found")
		result.Format = format
		return e.degrade(result)
	}

	return ExtractionResult{Text: text, Format: format}
}

// ExtractFromURL implements DocumentTextExtractor.
func (e *documentTextExtractor) ExtractFromURL(ctx context.Context, sourceURL string) ExtractionResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return e.degrade(Degraded(ReasonFetchFailed, err.Error()))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return e.degrade(Degraded(ReasonFetchFailed, err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.degrade(Degraded(ReasonFetchFailed, fmt.Sprintf("unexpected status %s", resp.Status)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return e.degrade(Degraded(ReasonFetchFailed, err.Error()))
	}
	if int64(len(body)) > e.maxBytes {
		return e.degrade(Degraded(ReasonFetchFailed, fmt.Sprintf("document exceeds %d bytes", e.maxBytes)))
	}

	return e.Extract(body, resp.Header.Get("Content-Type"), sourceURL)
}

func (e *documentTextExtractor) degrade(result ExtractionResult) ExtractionResult {
	e.log.Warn("resume text unavailable",
		zap.String("reason", string(result.Reason)),
		zap.String("format", string(result.Format)),
		zap.String("detail", logger.Truncate(result.Detail, 200)),
	)
	return result
}
