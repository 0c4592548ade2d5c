package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-failchain/internal/cache"
	"github.com/miradorstack/mirador-failchain/internal/extractors"
	"github.com/miradorstack/mirador-failchain/internal/failure"
	"github.com/miradorstack/mirador-failchain/internal/metrics"
	"github.com/miradorstack/mirador-failchain/internal/models"
	"github.com/miradorstack/mirador-failchain/internal/utils"
)

const legacyCachePrefix = "failchain:legacy:"

// Publisher describes the downstream reporter the normalizer forwards reports to.
type Publisher interface {
	Publish(ctx context.Context, report models.Report) error
}

// Normalizer selects the conversion pipeline for each input kind and wraps the
// resulting chain in a Report.
type Normalizer struct {
	logger    *slog.Logger
	cache     cache.Provider
	cacheTTL  time.Duration
	publisher Publisher
	xml       *extractors.XMLExtractor
	latencies *utils.LatencyTracker
	newID     func() string
	now       func() time.Time
}

// NewNormalizer constructs a Normalizer. cacheProvider and publisher may be nil.
func NewNormalizer(
	logger *slog.Logger,
	cacheProvider cache.Provider,
	cacheTTL time.Duration,
	publisher Publisher,
	xmlExtractor *extractors.XMLExtractor,
) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if xmlExtractor == nil {
		xmlExtractor = extractors.NewXMLExtractor()
	}
	return &Normalizer{
		logger:    logger,
		cache:     cacheProvider,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		xml:       xmlExtractor,
		latencies: utils.NewLatencyTracker(1024),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeError converts a live error chain. It never fails; a nil error
// yields an empty chain.
func (n *Normalizer) NormalizeError(ctx context.Context, err error) models.Report {
	start := time.Now()
	chain := failure.FromError(err)
	n.observe(models.SourceLive, start, metrics.OutcomeSuccess)
	return n.finish(ctx, models.SourceLive, chain)
}

// NormalizeLegacy converts a legacy text record. Missing blobs are rejected
// with *failure.ArgumentError before anything else happens.
func (n *Normalizer) NormalizeLegacy(ctx context.Context, record failure.LegacyText) (models.Report, error) {
	return n.normalizeLegacy(ctx, models.SourceLegacy, record, time.Now())
}

// NormalizeXML extracts the failure record from a legacy result document and
// converts it.
func (n *Normalizer) NormalizeXML(ctx context.Context, data []byte) (models.Report, error) {
	start := time.Now()
	record, err := n.xml.Extract(data)
	if err != nil {
		n.observe(models.SourceXML, start, metrics.OutcomeError)
		return models.Report{}, utils.NewAppError(string(models.SourceXML), utils.OpExtract, err)
	}
	return n.normalizeLegacy(ctx, models.SourceXML, record, start)
}

func (n *Normalizer) normalizeLegacy(ctx context.Context, source models.Source, record failure.LegacyText, start time.Time) (models.Report, error) {
	if err := record.Validate(); err != nil {
		n.observe(source, start, metrics.OutcomeError)
		return models.Report{}, utils.NewAppError(string(source), utils.OpValidate, err)
	}

	key := legacyCacheKey(record)
	chain, ok := n.cachedChain(ctx, key)
	if !ok {
		var err error
		chain, err = record.Chain()
		if err != nil {
			n.observe(source, start, metrics.OutcomeError)
			return models.Report{}, utils.NewAppError(string(source), utils.OpParse, err)
		}
		n.storeChain(ctx, key, chain)
	}
	n.observe(source, start, metrics.OutcomeSuccess)

	if !chain.Consistent() {
		metrics.ObserveLengthMismatch()
		n.logger.Warn("legacy failure counts disagree",
			slog.String("source", string(source)),
			slog.Int("messages", len(chain.Messages())),
			slog.Int("stack_traces", len(chain.StackTraces())))
	}

	return n.finish(ctx, source, chain), nil
}

// LatencyP95 returns the p95 of recent successful conversions for source.
func (n *Normalizer) LatencyP95(source models.Source) time.Duration {
	return n.latencies.Percentile(string(source), 95)
}

func (n *Normalizer) observe(source models.Source, start time.Time, outcome string) {
	d := time.Since(start)
	metrics.ObserveConversion(string(source), d, outcome)
	if outcome != metrics.OutcomeSuccess {
		return
	}
	if total := n.latencies.Observe(string(source), d); total%100 == 0 {
		n.logger.Info("conversion latency",
			slog.String("source", string(source)),
			slog.Duration("p95", n.LatencyP95(source)),
			slog.Int("samples", total))
	}
}

func (n *Normalizer) finish(ctx context.Context, source models.Source, chain failure.Chain) models.Report {
	report := models.Report{
		ID:        n.newID(),
		Source:    source,
		Chain:     chain,
		Mismatch:  !chain.Consistent(),
		CreatedAt: n.now(),
	}

	n.logger.Debug("failure chain normalized",
		slog.String("report_id", report.ID),
		slog.String("source", string(source)),
		slog.Int("entries", chain.Len()))

	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, report); err != nil {
			n.logger.Warn("failed to publish report", slog.String("report_id", report.ID), slog.Any("error", err))
		}
	}
	return report
}

// cacheEntry is the cached form of a chain. Text is stored as []byte so
// encoding/json base64-encodes it and invalid UTF-8 survives the round trip.
type cacheEntry struct {
	Types         []*[]byte `json:"types"`
	Messages      [][]byte  `json:"messages"`
	StackTraces   []*[]byte `json:"stack_traces"`
	ParentIndices []int     `json:"parent_indices"`
}

func newCacheEntry(chain failure.Chain) cacheEntry {
	entry := cacheEntry{
		Types:         optionalBytes(chain.Types()),
		StackTraces:   optionalBytes(chain.StackTraces()),
		ParentIndices: chain.ParentIndices(),
	}
	for _, m := range chain.Messages() {
		entry.Messages = append(entry.Messages, []byte(m))
	}
	return entry
}

func (e cacheEntry) chain() failure.Chain {
	messages := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		messages[i] = string(m)
	}
	return failure.New(optionalStrings(e.Types), messages, optionalStrings(e.StackTraces), e.ParentIndices)
}

func optionalBytes(values []*string) []*[]byte {
	out := make([]*[]byte, len(values))
	for i, v := range values {
		if v != nil {
			b := []byte(*v)
			out[i] = &b
		}
	}
	return out
}

func optionalStrings(values []*[]byte) []*string {
	out := make([]*string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = failure.String(string(*v))
		}
	}
	return out
}

func (n *Normalizer) cachedChain(ctx context.Context, key string) (failure.Chain, bool) {
	data, err := n.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			n.logger.Warn("cache lookup failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return failure.Chain{}, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		n.logger.Warn("evicting undecodable cache entry", slog.String("key", key), slog.Any("error", err))
		if delErr := n.cache.Del(ctx, key); delErr != nil {
			n.logger.Warn("cache evict failed", slog.String("key", key), slog.Any("error", delErr))
		}
		metrics.ObserveCacheLookup(false)
		return failure.Chain{}, false
	}
	metrics.ObserveCacheLookup(true)
	return entry.chain(), true
}

func (n *Normalizer) storeChain(ctx context.Context, key string, chain failure.Chain) {
	data, err := json.Marshal(newCacheEntry(chain))
	if err != nil {
		n.logger.Warn("encode chain for cache", slog.Any("error", err))
		return
	}
	if err := n.cache.Set(ctx, key, data, n.cacheTTL); err != nil {
		n.logger.Warn("cache store failed", slog.Any("error", err))
	}
}

// legacyCacheKey hashes the length-prefixed record fields.
func legacyCacheKey(record failure.LegacyText) string {
	h := sha256.New()
	writeField(h, record.ExceptionType)
	writeField(h, *record.Messages)
	writeField(h, *record.StackTraces)
	return legacyCachePrefix + hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, value string) {
	fmt.Fprintf(h, "%d:%s", len(value), value)
}
