package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/climate-stress-service/internal/adapter/http"
	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	readyErr  error
	runErr    error
	rows      []domain.PortfolioRow
	lastKey   string
	published []string
}

func (m *mockRunner) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockRunner) Run(_ context.Context, scenario domain.Scenario) (domain.Report, error) {
	m.lastKey = scenario.Key
	if m.runErr != nil {
		return domain.Report{}, m.runErr
	}
	return domain.BuildReport(m.rows, scenario)
}

func (m *mockRunner) Publish(_ context.Context, report domain.Report) {
	m.published = append(m.published, report.Scenario.Key)
}

func testRows(t *testing.T) []domain.PortfolioRow {
	t.Helper()
	rows, err := domain.JoinAll([]domain.Loan{
		{ID: 48213, CustomerName: "Cust_12", District: "Chennai", PropertyVal: 5_000_000, Amount: 4_200_000, BasePD: 0.02},
		{ID: 51877, CustomerName: "Cust_90", District: "Jaipur", PropertyVal: 5_000_000, Amount: 3_000_000, BasePD: 0.01},
	}, domain.DefaultDistricts())
	require.NoError(t, err)
	return rows
}

func newTestServer(t *testing.T, runner *mockRunner) *httpadapter.Server {
	t.Helper()
	if runner.rows == nil {
		runner.rows = testRows(t)
	}
	def, err := domain.LookupScenario("A")
	require.NoError(t, err)
	return httpadapter.NewServer(":0", runner, def, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{readyErr: errors.New("portfolio has not been loaded yet")}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestScenarios(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/api/scenarios")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Default   string            `json:"default"`
		Scenarios []domain.Scenario `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A", body.Default)
	assert.Equal(t, domain.Scenarios(), body.Scenarios)
}

func TestReport_DefaultScenario(t *testing.T) {
	runner := &mockRunner{}
	rec := get(newTestServer(t, runner), "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A", runner.lastKey)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "0.72", body["total_portfolio_crores"])
}

func TestReport_SevereScenario(t *testing.T) {
	runner := &mockRunner{}
	rec := get(newTestServer(t, runner), "/api/report?scenario=c")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C", runner.lastKey)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0.42", body["capital_at_risk_crores"])
}

func TestReport_UnknownScenario(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/api/report?scenario=Z")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "unknown scenario")
}

func TestReport_RunFailure(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{runErr: errors.New("boom")}), "/api/report")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(newTestServer(t, &mockRunner{runErr: errors.New("boom"), readyErr: errors.New("not loaded")}), "/api/report")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCritical(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/api/critical?scenario=C")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Loans []domain.CriticalRow `json:"loans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Loans, 1)
	assert.Equal(t, 48213, body.Loans[0].LoanID)
	assert.Equal(t, "Chennai", body.Loans[0].District)
	assert.Equal(t, domain.StatusCritical, body.Loans[0].Status)
}

func TestMap(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/api/map?scenario=C")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Points []domain.MapPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Points, 2)
	assert.Equal(t, domain.ColorCritical, body.Points[0].Color)
	assert.Equal(t, domain.ColorSafe, body.Points[1].Color)
	assert.Equal(t, int64(3_000_000), body.Points[1].Size)
}

func TestDashboard(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/?scenario=C")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	page := rec.Body.String()
	assert.Contains(t, page, "Climate Risk Stress Test: Scenario C: Severe (3.0°C)")
	assert.Contains(t, page, "₹ 0.42 Cr")
	assert.Contains(t, page, "<td>48213</td>")
	assert.NotContains(t, page, "<td>51877</td>")
	assert.Contains(t, page, `value="C" onchange="this.form.submit()" checked`)
}

func TestPublish_OnlyFullReportViews(t *testing.T) {
	runner := &mockRunner{}
	srv := newTestServer(t, runner)

	for _, target := range []string{"/api/critical?scenario=B", "/api/map?scenario=B", "/api/scenarios"} {
		require.Equal(t, http.StatusOK, get(srv, target).Code, target)
	}
	assert.Empty(t, runner.published)

	require.Equal(t, http.StatusOK, get(srv, "/api/report?scenario=B").Code)
	require.Equal(t, http.StatusOK, get(srv, "/?scenario=C").Code)
	assert.Equal(t, []string{"B", "C"}, runner.published)
}

func TestPublish_SkippedOnFailure(t *testing.T) {
	runner := &mockRunner{runErr: errors.New("boom")}
	srv := newTestServer(t, runner)

	get(srv, "/api/report")
	get(srv, "/?scenario=Z")
	assert.Empty(t, runner.published)
}

func TestDashboard_DistrictNamesRenderAsText(t *testing.T) {
	const name = `<img src=x onerror=alert(1)>`
	rows, err := domain.JoinAll([]domain.Loan{
		{ID: 60001, CustomerName: "Cust_5", District: name, PropertyVal: 5_000_000, Amount: 4_800_000, BasePD: 0.02},
	}, []domain.District{{Name: name, FloodRisk: 0.9, HeatRisk: 0.5, Lat: 19.07, Lon: 72.87}})
	require.NoError(t, err)

	rec := get(newTestServer(t, &mockRunner{rows: rows}), "/?scenario=C")
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.NotContains(t, page, name)
	assert.Contains(t, page, "row.textContent = line")
	assert.NotContains(t, page, "bindPopup(p.district")
}

func TestDashboard_UnknownPathIs404(t *testing.T) {
	rec := get(newTestServer(t, &mockRunner{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
