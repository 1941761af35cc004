package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice/assets"
	"houseprice/config"
	"houseprice/form"
	"houseprice/metadata"
)

const featuresJSON = `["Town","Type","TotalArea","TotalRooms","NumberOfBathrooms","Parking","Elevator","travel_min_final","drive_min_final","drive_km_final","no_transit_route"]`

type fixture struct {
	cfg   *config.Config
	hits  *atomic.Int32
	srv   *httptest.Server
	model []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	model, err := os.ReadFile(filepath.Join("..", "ml", "testdata", "legacy_pipeline.json"))
	require.NoError(t, err)

	f := &fixture{hits: &atomic.Int32{}, model: model}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Write(f.model)
	}))
	t.Cleanup(f.srv.Close)

	dir := t.TempDir()
	features := filepath.Join(dir, "rf_price_features.json")
	require.NoError(t, os.WriteFile(features, []byte(featuresJSON), 0o600))

	cfg := config.Default()
	cfg.Model.Path = filepath.Join(dir, "rf_price_per_m2.json")
	cfg.Model.URL = f.srv.URL
	cfg.Model.MinSizeBytes = 100
	cfg.Metadata.FeaturesPath = features
	cfg.Metadata.ChoicesPath = filepath.Join(dir, "choices.json")
	f.cfg = cfg
	return f
}

func (f *fixture) runtime() *Runtime {
	return New(f.cfg, nil, assets.WithHTTPClient(f.srv.Client()))
}

func TestResourcesEndToEnd(t *testing.T) {
	f := newFixture(t)
	rt := f.runtime()

	res, err := rt.Resources(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Schema, 11)
	assert.Equal(t, metadata.EmptyCatalog(), res.Catalog)

	record, err := form.Collect(url.Values{
		form.Town:           {"Lisbon"},
		form.Type:           {"Apartment"},
		form.TotalArea:      {"80"},
		form.NoTransitRoute: {"1"},
		form.CarTime:        {"20"},
	})
	require.NoError(t, err)

	result, err := res.Predictor.Predict(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, result.PricePerArea)
	assert.Equal(t, 200000.0, result.TotalPrice)
	assert.Equal(t, "Estimated price: €200,000  (≈ €2,500 / m²)", res.Formatter.Summary(result))
}

func TestResourcesLoadOnce(t *testing.T) {
	f := newFixture(t)
	rt := f.runtime()

	var wg sync.WaitGroup
	results := make([]*Resources, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := rt.Resources(context.Background())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.hits.Load())
	for _, res := range results[1:] {
		assert.Same(t, results[0], res)
	}

	// a second runtime finds the artifact already on disk
	_, err := f.runtime().Resources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestResourcesAssetUnavailable(t *testing.T) {
	f := newFixture(t)
	f.cfg.Model.MinSizeBytes = int64(len(f.model)) + 1

	_, err := f.runtime().Resources(context.Background())
	assert.ErrorIs(t, err, assets.ErrAssetUnavailable)
}

func TestResourcesSchemaUnavailable(t *testing.T) {
	f := newFixture(t)
	f.cfg.Metadata.FeaturesPath = filepath.Join(t.TempDir(), "missing.json")

	rt := f.runtime()
	_, err := rt.Resources(context.Background())
	assert.ErrorIs(t, err, metadata.ErrSchemaUnavailable)

	// failures are sticky
	_, again := rt.Resources(context.Background())
	assert.Equal(t, err, again)
}

func TestResourcesLoadsCatalog(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Metadata.ChoicesPath, []byte(`{"Town":["Lisbon","Porto"],"Type":["Apartment"]}`), 0o600))

	res, err := f.runtime().Resources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Lisbon", "Porto"}, res.Catalog.Values(metadata.FieldTown))
}

func TestResourcesRemovesUndecodableDownload(t *testing.T) {
	f := newFixture(t)
	f.model = bytes.Repeat([]byte{0x80}, 200)

	_, err := f.runtime().Resources(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, f.cfg.Model.Path)

	// a fixed remote copy is picked up by the next start
	f.model, err = os.ReadFile(filepath.Join("..", "ml", "testdata", "legacy_pipeline.json"))
	require.NoError(t, err)
	_, err = f.runtime().Resources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestResourcesKeepsExistingUndecodableFile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Model.Path, []byte("not json"), 0o600))

	_, err := f.runtime().Resources(context.Background())
	require.Error(t, err)
	assert.FileExists(t, f.cfg.Model.Path)
	assert.Zero(t, f.hits.Load())
}
