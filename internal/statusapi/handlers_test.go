package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/execstore"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

type fakeDatasets struct{ specs []model.DatasetSpec }

func (f fakeDatasets) Specs() []model.DatasetSpec { return f.specs }

type fakeHistory struct {
	records []execstore.Record
	err     error
}

func (f fakeHistory) Recent(limit int) ([]execstore.Record, error) { return f.records, f.err }

func newTestRouter(datasets DatasetLister, history ExecutionHistory) *Router {
	r := New(nil)
	Register(r, datasets, history)
	return r
}

func TestHealthz_ReturnsOK(t *testing.T) {
	r := newTestRouter(fakeDatasets{}, fakeHistory{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestDatasets_ListsRegisteredSpecs(t *testing.T) {
	r := newTestRouter(fakeDatasets{specs: []model.DatasetSpec{
		{ID: "ds1", Enabled: true, Cron: "0 0 2 * * ?"},
	}}, fakeHistory{})
	req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body []datasetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "ds1", body[0].ID)
}

func TestDatasetDetail_UnknownIDIsNotFound(t *testing.T) {
	r := newTestRouter(fakeDatasets{}, fakeHistory{})
	req := httptest.NewRequest(http.MethodGet, "/datasets/missing", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PostIsMethodNotAllowed(t *testing.T) {
	r := newTestRouter(fakeDatasets{}, fakeHistory{})
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
