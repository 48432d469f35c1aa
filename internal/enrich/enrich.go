// Package enrich looks up parts at the distributors, normalizes the vendor
// responses, and produces risk assessments and ranked substitute candidates.
package enrich

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/internal/resilience"
	"github.com/procurewatch/bomrisk/internal/risk"
	"github.com/procurewatch/bomrisk/internal/similarity"
	"github.com/procurewatch/bomrisk/internal/store"
	"github.com/procurewatch/bomrisk/pkg/digikey"
	"github.com/procurewatch/bomrisk/pkg/mouser"
)

// ErrPartNotFound is returned when neither distributor has a record for
// the part.
var ErrPartNotFound = eris.New("enrich: part not found at any vendor")

// DigiKeyAPI is the DigiKey surface the enricher uses.
type DigiKeyAPI interface {
	ProductDetails(ctx context.Context, productNumber string) (*digikey.Product, error)
	KeywordSearch(ctx context.Context, req digikey.KeywordSearchRequest) (*digikey.KeywordSearchResponse, error)
}

// MouserAPI is the Mouser surface the enricher uses.
type MouserAPI interface {
	SearchByPartNumber(ctx context.Context, partNumber string) (*mouser.SearchResult, error)
}

// Options tunes enricher behavior.
type Options struct {
	// CacheTTL is how long vendor responses stay valid in the store.
	CacheTTL time.Duration

	// MaxCandidates caps the number of substitutes fetched per part.
	MaxCandidates int

	// MaxConcurrent bounds the similarity fan-out over candidates.
	MaxConcurrent int

	// DigiKeyRate and MouserRate are requests per second per vendor.
	DigiKeyRate int
	MouserRate  int

	// Retry overrides the vendor retry policy. Zero value uses defaults.
	Retry resilience.RetryConfig
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 10
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.DigiKeyRate <= 0 {
		o.DigiKeyRate = 2
	}
	if o.MouserRate <= 0 {
		o.MouserRate = 2
	}
	return o
}

// Enricher drives the lookup/normalize/classify pipeline.
type Enricher struct {
	store   store.Store
	digikey DigiKeyAPI
	mouser  MouserAPI
	calc    *similarity.Calculator
	opts    Options

	dkLimiter *rate.Limiter
	moLimiter *rate.Limiter
}

// New creates an Enricher. The mouser client may be nil, in which case no
// fallback lookup happens. calc may be nil to use the default registry.
func New(st store.Store, dk DigiKeyAPI, mo MouserAPI, calc *similarity.Calculator, opts Options) *Enricher {
	opts = opts.withDefaults()
	if calc == nil {
		calc = similarity.NewCalculator(nil)
	}
	return &Enricher{
		store:     st,
		digikey:   dk,
		mouser:    mo,
		calc:      calc,
		opts:      opts,
		dkLimiter: rate.NewLimiter(rate.Limit(opts.DigiKeyRate), opts.DigiKeyRate),
		moLimiter: rate.NewLimiter(rate.Limit(opts.MouserRate), opts.MouserRate),
	}
}

// Lookup returns the unified product record for an MPN, from cache when
// fresh, otherwise from DigiKey with Mouser as the fallback source.
func (e *Enricher) Lookup(ctx context.Context, mpn string) (*model.UnifiedProduct, error) {
	key := model.PartKey(mpn)
	if cached, err := e.store.GetCachedProduct(ctx, key); err != nil {
		zap.L().Warn("product cache read failed", zap.String("mpn", mpn), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	product, err := e.fetchDigiKey(ctx, mpn)
	if err != nil && !errors.Is(err, digikey.ErrNotFound) {
		return nil, err
	}
	if product == nil && e.mouser != nil {
		product, err = e.fetchMouser(ctx, mpn)
		if err != nil {
			return nil, err
		}
	}
	if product == nil {
		return nil, eris.Wrapf(ErrPartNotFound, "%s", mpn)
	}

	if err := e.store.SetCachedProduct(ctx, key, *product, e.opts.CacheTTL); err != nil {
		zap.L().Warn("product cache write failed", zap.String("mpn", mpn), zap.Error(err))
	}
	return product, nil
}

func (e *Enricher) fetchDigiKey(ctx context.Context, mpn string) (*model.UnifiedProduct, error) {
	if err := e.dkLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: digikey rate wait")
	}
	cfg := e.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("digikey", "product_details")
	p, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*digikey.Product, error) {
		return e.digikey.ProductDetails(ctx, mpn)
	})
	if err != nil {
		if errors.Is(err, digikey.ErrNotFound) {
			return nil, err
		}
		return nil, eris.Wrapf(err, "enrich: digikey lookup %s", mpn)
	}
	unified := FromDigiKey(*p)
	return &unified, nil
}

func (e *Enricher) fetchMouser(ctx context.Context, mpn string) (*model.UnifiedProduct, error) {
	if err := e.moLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: mouser rate wait")
	}
	cfg := e.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("mouser", "search_by_part_number")
	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*mouser.SearchResult, error) {
		return e.mouser.SearchByPartNumber(ctx, mpn)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: mouser lookup %s", mpn)
	}

	key := model.PartKey(mpn)
	for _, part := range res.Parts {
		if model.PartKey(part.ManufacturerPartNumber) == key {
			unified := FromMouser(part)
			return &unified, nil
		}
	}
	return nil, nil
}

// Substitutes returns candidate replacement parts for the product, found by
// a DigiKey keyword search on the product description. The target itself is
// excluded from the results.
func (e *Enricher) Substitutes(ctx context.Context, product model.UnifiedProduct) ([]model.UnifiedProduct, error) {
	if product.Description == "" {
		return nil, nil
	}

	key := model.PartKey(product.MPN) + ":subs"
	if cached, err := e.store.GetCachedSearch(ctx, key); err != nil {
		zap.L().Warn("search cache read failed", zap.String("mpn", product.MPN), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	if err := e.dkLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: digikey rate wait")
	}
	cfg := e.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("digikey", "keyword_search")
	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*digikey.KeywordSearchResponse, error) {
		return e.digikey.KeywordSearch(ctx, digikey.KeywordSearchRequest{
			Keywords: product.Description,
			Limit:    e.opts.MaxCandidates + 1,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: substitute search %s", product.MPN)
	}

	targetKey := model.PartKey(product.MPN)
	subs := make([]model.UnifiedProduct, 0, len(res.Products))
	for _, p := range res.Products {
		if model.PartKey(p.ManufacturerProductNumber) == targetKey {
			continue
		}
		subs = append(subs, FromDigiKey(p))
		if len(subs) >= e.opts.MaxCandidates {
			break
		}
	}

	if err := e.store.SetCachedSearch(ctx, key, subs, e.opts.CacheTTL); err != nil {
		zap.L().Warn("search cache write failed", zap.String("mpn", product.MPN), zap.Error(err))
	}
	return subs, nil
}

// Assess runs the full risk pipeline for one MPN and persists the result.
func (e *Enricher) Assess(ctx context.Context, mpn string) (*model.RiskAssessment, error) {
	product, err := e.Lookup(ctx, mpn)
	if err != nil {
		return nil, err
	}

	var substituteCount *int
	subs, err := e.Substitutes(ctx, *product)
	if err != nil {
		// An unknown substitute count leaves the base level unchanged.
		zap.L().Warn("substitute search failed", zap.String("mpn", mpn), zap.Error(err))
	} else {
		n := len(subs)
		substituteCount = &n
	}

	assessment := BuildAssessment(*product, substituteCount)
	if err := e.store.SaveAssessment(ctx, assessment); err != nil {
		zap.L().Warn("assessment save failed", zap.String("mpn", mpn), zap.Error(err))
	}
	return &assessment, nil
}

// BuildAssessment classifies an already-fetched product. A part whose
// lifecycle normalizes to EOL is always High risk, on top of the text-rule
// classification.
func BuildAssessment(product model.UnifiedProduct, substituteCount *int) model.RiskAssessment {
	compliance := model.NormalizedCompliance{
		Rohs:  risk.NormalizeCompliance(product.RohsStatus),
		Reach: risk.NormalizeCompliance(product.ReachStatus),
	}
	lifecycle := risk.NormalizeLifecycle(product.LifecycleStatus)

	level := risk.Level(compliance, product.LifecycleStatus, substituteCount)
	cls := risk.Classify(compliance, product.LifecycleStatus, substituteCount)
	reasons := risk.ContributingReasons(compliance, product.LifecycleStatus, substituteCount, cls)

	if lifecycle == model.LifecycleEOL {
		level = model.RiskHigh
	}

	return model.RiskAssessment{
		MPN:             product.MPN,
		Manufacturer:    product.Manufacturer,
		Compliance:      compliance,
		Lifecycle:       lifecycle,
		RiskLevel:       level,
		Classification:  cls,
		CurrentReasons:  reasons.CurrentReasons,
		FutureReasons:   reasons.FutureReasons,
		SubstituteCount: substituteCount,
		Evidence:        risk.BuildEvidence(product, compliance),
		AssessedAt:      time.Now().UTC(),
	}
}

// FromDigiKey converts a DigiKey product into the unified form.
func FromDigiKey(p digikey.Product) model.UnifiedProduct {
	params := make([]model.Parameter, 0, len(p.Parameters))
	for _, param := range p.Parameters {
		params = append(params, model.Parameter{Name: param.ParameterText, Value: param.ValueText})
	}
	return model.UnifiedProduct{
		MPN:               p.ManufacturerProductNumber,
		Manufacturer:      p.Manufacturer.Name,
		Description:       p.Description.ProductDescription,
		Source:            "digikey",
		ProductURL:        p.ProductUrl,
		DatasheetURL:      p.DatasheetUrl,
		QuantityAvailable: p.QuantityAvailable,
		UnitPrice:         p.UnitPrice,
		LifecycleStatus:   p.ProductStatus.Status,
		RohsStatus:        p.Classifications.RohsStatus,
		ReachStatus:       p.Classifications.ReachStatus,
		Parameters:        params,
		RetrievedAt:       time.Now().UTC(),
	}
}

// FromMouser converts a Mouser part into the unified form.
func FromMouser(p mouser.Part) model.UnifiedProduct {
	params := make([]model.Parameter, 0, len(p.ProductAttributes))
	for _, attr := range p.ProductAttributes {
		params = append(params, model.Parameter{Name: attr.AttributeName, Value: attr.AttributeValue})
	}
	return model.UnifiedProduct{
		MPN:               p.ManufacturerPartNumber,
		Manufacturer:      p.Manufacturer,
		Description:       p.Description,
		Source:            "mouser",
		ProductURL:        p.ProductDetailUrl,
		DatasheetURL:      p.DataSheetUrl,
		QuantityAvailable: parseAvailability(p.Availability),
		UnitPrice:         firstPrice(p.PriceBreaks),
		LifecycleStatus:   p.LifecycleStatus,
		RohsStatus:        p.ROHSStatus,
		Parameters:        params,
		RetrievedAt:       time.Now().UTC(),
	}
}

// parseAvailability extracts the leading stock count from strings like
// "15000 In Stock".
func parseAvailability(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// firstPrice returns the lowest-quantity price tier, stripping the currency
// symbol from values like "$0.12".
func firstPrice(breaks []mouser.PriceBreak) float64 {
	if len(breaks) == 0 {
		return 0
	}
	raw := strings.TrimFunc(breaks[0].Price, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != ','
	})
	raw = strings.ReplaceAll(raw, ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return price
}
