package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/internal/store"
	"github.com/procurewatch/bomrisk/pkg/digikey"
	"github.com/procurewatch/bomrisk/pkg/mouser"
)

type fakeStore struct {
	mu          sync.Mutex
	products    map[string]model.UnifiedProduct
	searches    map[string][]model.UnifiedProduct
	assessments []model.RiskAssessment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]model.UnifiedProduct{},
		searches: map[string][]model.UnifiedProduct{},
	}
}

func (s *fakeStore) GetCachedProduct(_ context.Context, key string) (*model.UnifiedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[key]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *fakeStore) SetCachedProduct(_ context.Context, key string, p model.UnifiedProduct, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[key] = p
	return nil
}

func (s *fakeStore) GetCachedSearch(_ context.Context, key string) ([]model.UnifiedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches[key], nil
}

func (s *fakeStore) SetCachedSearch(_ context.Context, key string, p []model.UnifiedProduct, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[key] = p
	return nil
}

func (s *fakeStore) SaveAssessment(_ context.Context, a model.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *fakeStore) ListAssessments(_ context.Context, _ store.AssessmentFilter) ([]model.RiskAssessment, error) {
	return s.assessments, nil
}

func (s *fakeStore) SaveEvaluationReport(_ context.Context, _ model.EvaluationReport) error {
	return nil
}

func (s *fakeStore) DeleteExpired(_ context.Context) (int, error) { return 0, nil }
func (s *fakeStore) Migrate(_ context.Context) error              { return nil }
func (s *fakeStore) Close() error                                 { return nil }

type fakeDigiKey struct {
	mu           sync.Mutex
	products     map[string]*digikey.Product
	searchResult *digikey.KeywordSearchResponse
	searchErr    error
	detailCalls  int
}

func (f *fakeDigiKey) ProductDetails(_ context.Context, mpn string) (*digikey.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if p, ok := f.products[mpn]; ok {
		return p, nil
	}
	return nil, digikey.ErrNotFound
}

func (f *fakeDigiKey) KeywordSearch(_ context.Context, _ digikey.KeywordSearchRequest) (*digikey.KeywordSearchResponse, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult == nil {
		return &digikey.KeywordSearchResponse{}, nil
	}
	return f.searchResult, nil
}

type fakeMouser struct {
	result *mouser.SearchResult
}

func (f *fakeMouser) SearchByPartNumber(_ context.Context, _ string) (*mouser.SearchResult, error) {
	if f.result == nil {
		return &mouser.SearchResult{}, nil
	}
	return f.result, nil
}

func activeProduct(mpn string) *digikey.Product {
	return &digikey.Product{
		ManufacturerProductNumber: mpn,
		Manufacturer:              digikey.Manufacturer{Name: "Murata"},
		Description:               digikey.ProductDescription{ProductDescription: "CAP CER 4.7UF 10V X5R 0603"},
		ProductStatus:             digikey.ProductStatus{Status: "Active"},
		Classifications: digikey.Classifications{
			RohsStatus:  "ROHS3 Compliant",
			ReachStatus: "REACH Unaffected",
		},
	}
}

func fastOptions() Options {
	return Options{DigiKeyRate: 1000, MouserRate: 1000}
}

func TestLookupDigiKey(t *testing.T) {
	st := newFakeStore()
	dk := &fakeDigiKey{products: map[string]*digikey.Product{
		"GRM188R61A475KE15D": activeProduct("GRM188R61A475KE15D"),
	}}
	e := New(st, dk, nil, nil, fastOptions())

	p, err := e.Lookup(context.Background(), "GRM188R61A475KE15D")
	require.NoError(t, err)
	assert.Equal(t, "digikey", p.Source)
	assert.Equal(t, "Murata", p.Manufacturer)

	// Second lookup is served from the cache.
	_, err = e.Lookup(context.Background(), "GRM188R61A475KE15D")
	require.NoError(t, err)
	assert.Equal(t, 1, dk.detailCalls)
}

func TestLookupMouserFallback(t *testing.T) {
	st := newFakeStore()
	dk := &fakeDigiKey{}
	mo := &fakeMouser{result: &mouser.SearchResult{Parts: []mouser.Part{{
		ManufacturerPartNumber: "CL10A475KO8NNNC",
		Manufacturer:           "Samsung",
		LifecycleStatus:        "Obsolete",
		ROHSStatus:             "RoHS Compliant",
	}}}}
	e := New(st, dk, mo, nil, fastOptions())

	p, err := e.Lookup(context.Background(), "cl10a475ko8nnnc")
	require.NoError(t, err)
	assert.Equal(t, "mouser", p.Source)
	assert.Equal(t, "Samsung", p.Manufacturer)
}

func TestLookupNotFound(t *testing.T) {
	e := New(newFakeStore(), &fakeDigiKey{}, &fakeMouser{}, nil, fastOptions())

	_, err := e.Lookup(context.Background(), "MISSING-1")
	assert.ErrorIs(t, err, ErrPartNotFound)
}

func TestAssessEscalatesWithZeroSubstitutes(t *testing.T) {
	st := newFakeStore()
	p := activeProduct("GRM188R61A475KE15D")
	p.ProductStatus.Status = "Not Recommended for New Designs"
	dk := &fakeDigiKey{
		products:     map[string]*digikey.Product{"GRM188R61A475KE15D": p},
		searchResult: &digikey.KeywordSearchResponse{},
	}
	e := New(st, dk, nil, nil, fastOptions())

	a, err := e.Assess(context.Background(), "GRM188R61A475KE15D")
	require.NoError(t, err)
	require.NotNil(t, a.SubstituteCount)
	assert.Equal(t, 0, *a.SubstituteCount)
	// NRND is Medium, escalated to High by the zero substitute count.
	assert.Equal(t, model.RiskHigh, a.RiskLevel)
	assert.Equal(t, model.LifecycleNRND, a.Lifecycle)
	require.Len(t, st.assessments, 1)
}

func TestAssessSubstituteSearchFailureLeavesLevel(t *testing.T) {
	st := newFakeStore()
	p := activeProduct("GRM188R61A475KE15D")
	p.ProductStatus.Status = "Not Recommended for New Designs"
	dk := &fakeDigiKey{
		products:  map[string]*digikey.Product{"GRM188R61A475KE15D": p},
		searchErr: assert.AnError,
	}
	e := New(st, dk, nil, nil, fastOptions())

	a, err := e.Assess(context.Background(), "GRM188R61A475KE15D")
	require.NoError(t, err)
	assert.Nil(t, a.SubstituteCount)
	assert.Equal(t, model.RiskMedium, a.RiskLevel, "unknown substitute count must not escalate")
}

func TestBuildAssessmentEOLOverride(t *testing.T) {
	product := model.UnifiedProduct{
		MPN:             "OLD-PART-1",
		LifecycleStatus: "End of Life",
		RohsStatus:      "ROHS3 Compliant",
		ReachStatus:     "REACH Unaffected",
	}
	five := 5

	a := BuildAssessment(product, &five)
	assert.Equal(t, model.LifecycleEOL, a.Lifecycle)
	assert.Equal(t, model.RiskHigh, a.RiskLevel, "EOL parts are always High risk")
}

func TestSubstitutesExcludesTarget(t *testing.T) {
	st := newFakeStore()
	dk := &fakeDigiKey{searchResult: &digikey.KeywordSearchResponse{Products: []digikey.Product{
		*activeProduct("GRM188R61A475KE15D"),
		*activeProduct("CL10A475KO8NNNC"),
		*activeProduct("C1608X5R1A475K080AC"),
	}}}
	e := New(st, dk, nil, nil, fastOptions())

	subs, err := e.Substitutes(context.Background(), model.UnifiedProduct{
		MPN:         "GRM188R61A475KE15D",
		Description: "CAP CER 4.7UF 10V X5R 0603",
	})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	for _, s := range subs {
		assert.NotEqual(t, "GRM188R61A475KE15D", s.MPN)
	}
}

func TestRankSubstitutesOrdersByScore(t *testing.T) {
	st := newFakeStore()
	target := activeProduct("GRM188R61A475KE15D")
	target.Parameters = []digikey.Parameter{
		{ParameterText: "Capacitance", ValueText: "4.7 µF"},
		{ParameterText: "Voltage - Rated", ValueText: "10V"},
	}
	near := activeProduct("CL10A475KO8NNNC")
	near.Parameters = []digikey.Parameter{
		{ParameterText: "Capacitance", ValueText: "4.7 µF"},
		{ParameterText: "Voltage - Rated", ValueText: "16V"},
	}
	far := activeProduct("FAR-PART-1")
	far.Parameters = []digikey.Parameter{
		{ParameterText: "Capacitance", ValueText: "100 µF"},
		{ParameterText: "Voltage - Rated", ValueText: "2V"},
	}
	dk := &fakeDigiKey{
		products: map[string]*digikey.Product{"GRM188R61A475KE15D": target},
		searchResult: &digikey.KeywordSearchResponse{Products: []digikey.Product{*far, *near}},
	}
	e := New(st, dk, nil, nil, fastOptions())

	got, ranked, err := e.RankSubstitutes(context.Background(), "GRM188R61A475KE15D")
	require.NoError(t, err)
	assert.Equal(t, "GRM188R61A475KE15D", got.MPN)
	require.Len(t, ranked, 2)
	assert.Equal(t, "CL10A475KO8NNNC", ranked[0].Product.MPN, "closest candidate first")
	assert.Greater(t, ranked[0].Similarity.TotalScore, ranked[1].Similarity.TotalScore)
}

func TestFromMouserParsing(t *testing.T) {
	p := FromMouser(mouser.Part{
		ManufacturerPartNumber: "CL10A475KO8NNNC",
		Availability:           "15,000 In Stock",
		PriceBreaks:            []mouser.PriceBreak{{Quantity: 1, Price: "$0.12", Currency: "USD"}},
	})
	assert.Equal(t, 15000, p.QuantityAvailable)
	assert.Equal(t, 0.12, p.UnitPrice)
}
