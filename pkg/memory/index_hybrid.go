package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// IndexOptions configures the in-process hybrid index.
type IndexOptions struct {
	Name              string
	StorageLocation   string
	DefaultNumResults int
	MinThreshold      float64
	// HybridWeight mixes embedding similarity against BM25: 1.0 is pure
	// vector, 0.0 pure lexical.
	HybridWeight float64
	K1           float64
	B            float64
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.DefaultNumResults <= 0 {
		o.DefaultNumResults = 10
	}
	if o.MinThreshold <= 0 {
		o.MinThreshold = 0.1
	}
	if o.HybridWeight <= 0 || o.HybridWeight > 1 {
		o.HybridWeight = 0.6
	}
	if o.K1 <= 0 {
		o.K1 = 1.2
	}
	if o.B <= 0 || o.B > 1 {
		o.B = 0.75
	}
	return o
}

type indexDoc struct {
	text   string
	vector []float32
	terms  map[string]int
	length int
}

// HybridIndex is the default SemanticIndex: BM25 over word tokens combined
// with trigram-embedding cosine similarity. Documents live in memory; an
// optional JSON snapshot at StorageLocation survives restarts. Surrogate ids
// are deterministic, so a rebuild from the store reproduces the same index.
type HybridIndex struct {
	mu       sync.Mutex
	opts     IndexOptions
	docs     map[string]*indexDoc
	docFreq  map[string]int
	totalLen int
}

// NewHybridIndex builds the index, loading a prior snapshot when one exists
// at the configured storage location.
func NewHybridIndex(opts IndexOptions) (*HybridIndex, error) {
	idx := &HybridIndex{
		opts:    opts.withDefaults(),
		docs:    map[string]*indexDoc{},
		docFreq: map[string]int{},
	}
	if err := idx.loadSnapshot(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add indexes one document under id, replacing any prior document with the
// same id.
func (x *HybridIndex) Add(_ context.Context, text, id string) error {
	if id == "" {
		return fmt.Errorf("hybrid index: empty document id")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
	x.addLocked(text, id)
	return nil
}

// AddBatch indexes texts under the parallel ids slice.
func (x *HybridIndex) AddBatch(_ context.Context, texts, ids []string) error {
	if len(texts) != len(ids) {
		return fmt.Errorf("hybrid index: %d texts for %d ids", len(texts), len(ids))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("hybrid index: empty document id at position %d", i)
		}
		x.removeLocked(id)
		x.addLocked(texts[i], id)
	}
	return nil
}

func (x *HybridIndex) addLocked(text, id string) {
	terms := map[string]int{}
	words := embedWords(text)
	for _, w := range words {
		terms[w]++
	}
	for term := range terms {
		x.docFreq[term]++
	}
	x.totalLen += len(words)
	x.docs[id] = &indexDoc{
		text:   text,
		vector: embedText(text),
		terms:  terms,
		length: len(words),
	}
}

func (x *HybridIndex) removeLocked(id string) {
	doc, ok := x.docs[id]
	if !ok {
		return
	}
	for term := range doc.terms {
		if x.docFreq[term] <= 1 {
			delete(x.docFreq, term)
		} else {
			x.docFreq[term]--
		}
	}
	x.totalLen -= doc.length
	delete(x.docs, id)
}

// Len reports how many documents are indexed.
func (x *HybridIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.docs)
}

// Delete removes the given document ids; missing ids are ignored.
func (x *HybridIndex) Delete(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		x.removeLocked(id)
	}
	return nil
}

// Reset empties the index.
func (x *HybridIndex) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs = map[string]*indexDoc{}
	x.docFreq = map[string]int{}
	x.totalLen = 0
	return nil
}

// Search scores every document as
// hybridWeight*cosine + (1-hybridWeight)*normalizedBM25 and returns hits at
// or above threshold, best first. Non-positive numResults and threshold fall
// back to the configured defaults.
func (x *HybridIndex) Search(_ context.Context, query string, numResults int, threshold float64) ([]IndexHit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if numResults <= 0 {
		numResults = x.opts.DefaultNumResults
	}
	if threshold <= 0 {
		threshold = x.opts.MinThreshold
	}
	if len(x.docs) == 0 {
		return nil, nil
	}

	queryVec := embedText(query)
	queryTerms := embedWords(query)
	avgLen := float64(x.totalLen) / float64(len(x.docs))
	if avgLen <= 0 {
		avgLen = 1
	}

	type scoredDoc struct {
		id     string
		bm25   float64
		cosine float64
	}
	scored := make([]scoredDoc, 0, len(x.docs))
	maxBM25 := 0.0
	for id, doc := range x.docs {
		s := scoredDoc{
			id:     id,
			bm25:   x.bm25Locked(queryTerms, doc, avgLen),
			cosine: (cosineSimilarity(queryVec, doc.vector) + 1) / 2,
		}
		if s.bm25 > maxBM25 {
			maxBM25 = s.bm25
		}
		scored = append(scored, s)
	}

	hits := make([]IndexHit, 0, numResults)
	for _, s := range scored {
		lexical := 0.0
		if maxBM25 > 0 {
			lexical = s.bm25 / maxBM25
		}
		score := x.opts.HybridWeight*s.cosine + (1-x.opts.HybridWeight)*lexical
		if score < threshold {
			continue
		}
		hits = append(hits, IndexHit{ID: s.id, Score: score, Text: x.docs[s.id].text})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > numResults {
		hits = hits[:numResults]
	}
	return hits, nil
}

func (x *HybridIndex) bm25Locked(queryTerms []string, doc *indexDoc, avgLen float64) float64 {
	n := float64(len(x.docs))
	score := 0.0
	for _, term := range queryTerms {
		tf := float64(doc.terms[term])
		if tf == 0 {
			continue
		}
		df := float64(x.docFreq[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := tf * (x.opts.K1 + 1) / (tf + x.opts.K1*(1-x.opts.B+x.opts.B*float64(doc.length)/avgLen))
		score += idf * norm
	}
	return score
}

// Close persists a snapshot when a storage location is configured.
func (x *HybridIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.opts.StorageLocation == "" {
		return nil
	}
	snapshot := make(map[string]string, len(x.docs))
	for id, doc := range x.docs {
		snapshot[id] = doc.text
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(x.opts.StorageLocation), 0o755); err != nil {
		return fmt.Errorf("create index snapshot dir: %w", err)
	}
	if err := os.WriteFile(x.opts.StorageLocation, data, 0o644); err != nil {
		return fmt.Errorf("write index snapshot: %w", err)
	}
	return nil
}

func (x *HybridIndex) loadSnapshot() error {
	if x.opts.StorageLocation == "" {
		return nil
	}
	data, err := os.ReadFile(x.opts.StorageLocation)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index snapshot: %w", err)
	}
	snapshot := map[string]string{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decode index snapshot: %w", err)
	}
	for id, text := range snapshot {
		x.addLocked(text, id)
	}
	return nil
}
