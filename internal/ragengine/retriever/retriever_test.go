package retriever

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocuMind/internal/config"
	"DocuMind/internal/ragengine/indexer"
	"DocuMind/internal/ragengine/keyword"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/internal/ragengine/storages/rawstore"
	"DocuMind/internal/ragengine/storages/vectorstore"
	"DocuMind/pkg/logger"
)

// bowEmbedder hashes tokens into a small bag-of-words vector, so texts that
// share words are cosine-similar and disjoint texts score zero.
type bowEmbedder struct{}

const bowDim = 16

func (bowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, bowDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(tok, ".,;:")))
		vec[h.Sum32()%bowDim]++
	}
	return vec, nil
}

func (e bowEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func testLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("test", "")
}

func testConfig() config.RetrieverConfig {
	return config.RetrieverConfig{
		TopKSemantic:   10,
		TopKKeyword:    10,
		SemanticWeight: 0.6,
		KeywordWeight:  0.4,
		DualBonus:      0.1,
		MinScore:       0,
	}
}

type fixture struct {
	retriever *Retriever
	raw       *rawstore.InMemoryStore
	vec       *vectorstore.InMemoryStore
	indexer   *indexer.Indexer
}

func newFixture(t *testing.T, cfg config.RetrieverConfig, byDoc map[string][]*schema.Element) *fixture {
	t.Helper()
	raw := rawstore.NewInMemoryStore()
	vec := vectorstore.NewInMemoryStore()
	kw := keyword.NewIndex()
	ix := indexer.New(bowEmbedder{}, raw, vec, kw, testLogger())
	for docID, elements := range byDoc {
		require.NoError(t, ix.Index(context.Background(), docID, elements))
	}
	return &fixture{
		retriever: New(bowEmbedder{}, vec, kw, raw, cfg, testLogger()),
		raw:       raw,
		vec:       vec,
		indexer:   ix,
	}
}

func element(docID string, page, seq int, typ schema.ElementType, text, summary string) *schema.Element {
	return &schema.Element{
		ID:         schema.ElementID(docID, page, seq),
		DocumentID: docID,
		Type:       typ,
		PageNumber: page,
		Text:       text,
		Summary:    summary,
	}
}

func TestRetrieve_AtMostTopK(t *testing.T) {
	elements := []*schema.Element{
		element("doc", 1, 0, schema.ElementText, "solar panels on rooftops", "rooftop solar adoption"),
		element("doc", 1, 1, schema.ElementText, "solar farms in deserts", "utility scale solar farms"),
		element("doc", 2, 0, schema.ElementText, "wind turbines offshore", "offshore wind capacity"),
		element("doc", 2, 1, schema.ElementText, "solar subsidies by state", "state solar subsidy programs"),
	}
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": elements})

	hits, err := f.retriever.Retrieve(context.Background(), "solar", 2, "")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
	assert.NotEmpty(t, hits)
}

func TestRetrieve_VerbatimTablePhraseViaKeywordLeg(t *testing.T) {
	// The table summary paraphrases the figures away; only the raw cell value
	// can match the query, through the keyword leg.
	table := element("doc", 3, 1, schema.ElementTable,
		"Quarter | Revenue\nQ1 | 1,284.5\nQ2 | 1,391.2",
		"Revenue by quarter in millions")
	prose := element("doc", 1, 0, schema.ElementText,
		"The company reported steady growth across the year.",
		"Annual growth commentary")
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": {prose, table}})

	hits, err := f.retriever.Retrieve(context.Background(), "1,284.5", 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, table.ID, hits[0].Element.ID)
	assert.Equal(t, schema.ElementTable, hits[0].Element.Type)
	assert.Positive(t, hits[0].KeywordScore)
}

func TestRetrieve_KeywordLegSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	table := element("doc", 3, 1, schema.ElementTable,
		"Quarter | Revenue\nQ1 | 1,284.5\nQ2 | 1,391.2",
		"Revenue by quarter in millions")
	prose := element("doc", 1, 0, schema.ElementText,
		"The company reported steady growth across the year.",
		"Annual growth commentary")
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": {prose, table}})

	hits, err := f.retriever.Retrieve(ctx, "1,284.5", 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, table.ID, hits[0].Element.ID)
	require.Positive(t, hits[0].KeywordScore)

	// A restart keeps the raw and vector stores but loses the in-process
	// keyword index; the startup rebuild restores the lexical leg.
	rebuilt := keyword.NewIndex()
	ix := indexer.New(bowEmbedder{}, f.raw, f.vec, rebuilt, testLogger())
	require.NoError(t, ix.RebuildKeywordIndex(ctx))
	ret := New(bowEmbedder{}, f.vec, rebuilt, f.raw, testConfig(), testLogger())

	hits, err = ret.Retrieve(ctx, "1,284.5", 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, table.ID, hits[0].Element.ID)
	assert.Positive(t, hits[0].KeywordScore)
}

func TestRetrieve_DualPresenceOutranksSingleLeg(t *testing.T) {
	both := element("doc", 1, 0, schema.ElementText,
		"Battery storage capacity doubled this year.",
		"battery storage capacity growth")
	neither := element("doc", 1, 1, schema.ElementText,
		"Unrelated appendix boilerplate.",
		"appendix notes")
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": {both, neither}})

	hits, err := f.retriever.Retrieve(context.Background(), "battery storage capacity", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, both.ID, hits[0].Element.ID)
	if len(hits) > 1 {
		assert.Greater(t, hits[0].FusedScore, hits[1].FusedScore)
	}
}

func TestRetrieve_TiesBreakByPageThenID(t *testing.T) {
	// Identical summaries and raw text produce identical scores on both legs.
	same := "identical passage about glaciers"
	a := element("doc", 2, 0, schema.ElementText, same, same)
	b := element("doc", 1, 1, schema.ElementText, same, same)
	c := element("doc", 1, 0, schema.ElementText, same, same)
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": {a, b, c}})

	hits, err := f.retriever.Retrieve(context.Background(), "identical passage about glaciers", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, c.ID, hits[0].Element.ID)
	assert.Equal(t, b.ID, hits[1].Element.ID)
	assert.Equal(t, a.ID, hits[2].Element.ID)
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	hits, err := f.retriever.Retrieve(context.Background(), "anything at all", 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieve_ZeroTopK(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	hits, err := f.retriever.Retrieve(context.Background(), "anything", 0, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieve_DanglingHitDropped(t *testing.T) {
	same := "ocean temperature measurements"
	a := element("doc", 1, 0, schema.ElementText, same, same)
	b := element("doc", 1, 1, schema.ElementText, same, same)
	f := newFixture(t, testConfig(), map[string][]*schema.Element{"doc": {a, b}})

	// Simulate a raw-store inconsistency behind the vector index.
	require.NoError(t, f.raw.Delete(context.Background(), "element/"+b.ID))

	hits, err := f.retriever.Retrieve(context.Background(), "ocean temperature measurements", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].Element.ID)
}

func TestRetrieve_DocumentFilter(t *testing.T) {
	shared := "shared maintenance procedures"
	f := newFixture(t, testConfig(), map[string][]*schema.Element{
		"manual-a": {element("manual-a", 1, 0, schema.ElementText, shared, shared)},
		"manual-b": {element("manual-b", 1, 0, schema.ElementText, shared, shared)},
	})

	hits, err := f.retriever.Retrieve(context.Background(), "maintenance procedures", 5, "manual-b")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "manual-b", h.Element.DocumentID)
	}
}

func TestRetrieve_MinScoreFilters(t *testing.T) {
	strong := element("doc", 1, 0, schema.ElementText,
		"lighthouse keeper logbook entries",
		"lighthouse keeper logbook entries")
	weak := element("doc", 1, 1, schema.ElementText,
		"completely different subject matter",
		"completely different subject matter")

	cfg := testConfig()
	cfg.MinScore = 0.5
	f := newFixture(t, cfg, map[string][]*schema.Element{"doc": {strong, weak}})

	hits, err := f.retriever.Retrieve(context.Background(), "lighthouse keeper logbook entries", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, strong.ID, hits[0].Element.ID)
}
