// Package service wires the ingestion and query pipelines into the operations
// the HTTP layer exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"DocuMind/internal/ragengine/composer"
	"DocuMind/internal/ragengine/extractor"
	"DocuMind/internal/ragengine/indexer"
	"DocuMind/internal/ragengine/retriever"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/internal/ragengine/summarizer"
	"DocuMind/pkg/logger"
)

// summarizeWorkers bounds parallel summarization calls within one ingestion.
const summarizeWorkers = 4

var documentIDPattern = regexp.MustCompile(`[^a-z0-9._-]+`)

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Service is the application core behind the HTTP handlers.
type Service struct {
	extractor  *extractor.Extractor
	summarizer *summarizer.Summarizer
	indexer    *indexer.Indexer
	retriever  *retriever.Retriever
	composer   *composer.Composer
	checkers   []HealthChecker
	log        *logger.Logger
}

// New creates a Service. checkers are probed by Health; in-memory stores may
// simply pass none.
func New(
	ext *extractor.Extractor,
	sum *summarizer.Summarizer,
	ix *indexer.Indexer,
	ret *retriever.Retriever,
	comp *composer.Composer,
	log *logger.Logger,
	checkers ...HealthChecker,
) *Service {
	return &Service{
		extractor:  ext,
		summarizer: sum,
		indexer:    ix,
		retriever:  ret,
		composer:   comp,
		checkers:   checkers,
		log:        log,
	}
}

// DocumentID derives the stable document identifier from an uploaded
// filename. Nameless uploads get a random id.
func DocumentID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	id := documentIDPattern.ReplaceAllString(strings.ToLower(base), "-")
	id = strings.Trim(id, "-")
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// IngestPDF runs the full ingestion pipeline for one PDF: extract, summarize,
// index. Element-level summarization failures are isolated and reported; an
// extraction failure or a store outage fails the call. Re-uploading the same
// filename supersedes the prior element set.
func (s *Service) IngestPDF(ctx context.Context, filename string, pdfBytes []byte) (*schema.IngestReport, error) {
	documentID := DocumentID(filename)
	report := &schema.IngestReport{DocumentID: documentID}

	elements, err := s.extractor.Extract(ctx, documentID, pdfBytes)
	if err != nil {
		return nil, err
	}

	// Elements are independent; summarize them in parallel.
	var mu sync.Mutex
	var failed []string
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(summarizeWorkers)
	for _, el := range elements {
		eg.Go(func() error {
			summary, err := s.summarizer.Summarize(gCtx, el)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, fmt.Sprintf("%s: %v", el.ID, err))
				return nil
			}
			el.Summary = summary
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(failed)
	report.Errors = failed
	report.Failed = len(failed)

	summarized := make([]*schema.Element, 0, len(elements))
	for _, el := range elements {
		if el.Summary != "" {
			summarized = append(summarized, el)
		}
	}

	if err := s.indexer.Index(ctx, documentID, summarized); err != nil {
		return nil, err
	}

	report.Succeeded = len(summarized)
	for _, el := range summarized {
		report.Summaries = append(report.Summaries, el.Summary)
	}

	s.log.WithPayload(map[string]interface{}{
		"document_id": documentID,
		"succeeded":   report.Succeeded,
		"failed":      report.Failed,
	}).Info("Ingestion finished")
	return report, nil
}

// QueryResult pairs a generated answer with its supporting hits and ordered
// citations.
type QueryResult struct {
	Answer    string
	Citations []schema.Citation
	Hits      []*schema.Hit
}

// Query answers a natural-language question against the corpus, optionally
// restricted to one document. When generation fails, the retrieved citations
// are still returned alongside the error so the caller keeps partial value.
func (s *Service) Query(ctx context.Context, text string, topK int, documentID string) (*QueryResult, error) {
	unlock := s.indexer.RLockDocument(documentID)
	defer unlock()

	hits, err := s.retriever.Retrieve(ctx, text, topK, documentID)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &QueryResult{Hits: []*schema.Hit{}}, nil
	}

	answer, citations, err := s.composer.Answer(ctx, text, hits)
	if err != nil {
		if errors.Is(err, schema.ErrGeneration) {
			return &QueryResult{Citations: citations, Hits: hits}, err
		}
		return nil, err
	}

	return &QueryResult{Answer: answer, Citations: citations, Hits: hits}, nil
}

// DeleteDocument removes a document's elements from the corpus.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	return s.indexer.Remove(ctx, documentID)
}

// Health probes every registered store backend.
func (s *Service) Health(ctx context.Context) error {
	for _, c := range s.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}
