package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"DocuMind/internal/config"
	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/pkg/logger"
)

const (
	// Schema fields for the Milvus collection that we filter on or output.
	FieldID          = "id"
	FieldEmbedding   = "embedding"
	FieldDocumentID  = "document_id"
	FieldElementType = "element_type"
	FieldPageNumber  = "page_number"

	maxIDLength = 512
)

// MilvusStore is an adapter for the Milvus client implementing the
// VectorStore interface. One row per element: the summary vector plus the
// metadata needed to resolve and order citations.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	metric     entity.MetricType
}

// NewMilvusStore connects to Milvus, ensures the summary collection exists
// with the configured dimension and metric, and returns the adapter.
func NewMilvusStore(ctx context.Context, cfg *config.MilvusConfig, log *logger.Logger) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	metric := entity.COSINE
	if strings.EqualFold(cfg.MetricType, "L2") {
		metric = entity.L2
	}

	s := &MilvusStore{
		log:        log,
		client:     c,
		collection: cfg.Collection,
		metric:     metric,
	}
	if err := s.ensureCollection(ctx, cfg.Dim); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context, dim int) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	if !exists {
		sch := entity.NewSchema().WithName(s.collection).
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dim))).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength)).
			WithField(entity.NewField().WithName(FieldElementType).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(16)).
			WithField(entity.NewField().WithName(FieldPageNumber).WithDataType(entity.FieldTypeInt64))
		if err := s.client.CreateCollection(ctx, sch, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}

		idx, err := entity.NewIndexHNSW(s.metric, 8, 64)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
		s.log.Info(fmt.Sprintf("Created Milvus collection '%s' (dim=%d)", s.collection, dim))
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes one element's vector and metadata, replacing any row with
// the same id.
func (s *MilvusStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	page, _ := strconv.ParseInt(metadata[FieldPageNumber], 10, 64)

	idCol := entity.NewColumnVarChar(FieldID, []string{id})
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, len(vector), [][]float32{vector})
	docIDCol := entity.NewColumnVarChar(FieldDocumentID, []string{metadata[FieldDocumentID]})
	typeCol := entity.NewColumnVarChar(FieldElementType, []string{metadata[FieldElementType]})
	pageCol := entity.NewColumnInt64(FieldPageNumber, []int64{page})

	_, err := s.client.Upsert(ctx, s.collection, "" /* default partition */, idCol, embeddingCol, docIDCol, typeCol, pageCol)
	if err != nil {
		return fmt.Errorf("failed to upsert into Milvus: %w", err)
	}
	return nil
}

// Delete removes the rows with the given ids.
func (s *MilvusStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("%s in [%s]", FieldID, strings.Join(quoted, ", "))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete from Milvus: %w", err)
	}
	return nil
}

// Query performs a vector search, optionally restricted to a document id.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]interfaces.VectorHit, error) {
	filterExpr := ""
	if documentID != "" {
		filterExpr = fmt.Sprintf(`%s == %q`, FieldDocumentID, documentID)
	}

	searchParams, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}
	outputFields := []string{FieldID, FieldDocumentID, FieldElementType, FieldPageNumber}

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, s.metric, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var hits []interfaces.VectorHit
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing ID field or has wrong type, skipping.")
			continue
		}
		idData := idCol.Data()

		var docIDData, typeData []string
		var pageData []int64
		if col, ok := findColumn(FieldDocumentID).(*entity.ColumnVarChar); ok {
			docIDData = col.Data()
		}
		if col, ok := findColumn(FieldElementType).(*entity.ColumnVarChar); ok {
			typeData = col.Data()
		}
		if col, ok := findColumn(FieldPageNumber).(*entity.ColumnInt64); ok {
			pageData = col.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			md := map[string]string{}
			if docIDData != nil {
				md[FieldDocumentID] = docIDData[i]
			}
			if typeData != nil {
				md[FieldElementType] = typeData[i]
			}
			if pageData != nil {
				md[FieldPageNumber] = strconv.FormatInt(pageData[i], 10)
			}
			hits = append(hits, interfaces.VectorHit{
				ID:       idData[i],
				Score:    float64(res.Scores[i]),
				Metadata: md,
			})
		}
	}

	return hits, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// HealthCheck verifies the Milvus connection.
func (s *MilvusStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
