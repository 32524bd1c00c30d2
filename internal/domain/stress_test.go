package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPropertyValue = 1_000_000
	testSevere        = 0.50
)

func testRow(propertyValue, amount int64, basePD, flood, heat float64) PortfolioRow {
	return PortfolioRow{
		Loan: Loan{
			ID:           12345,
			CustomerName: "Cust_7",
			District:     "Chennai",
			PropertyVal:  propertyValue,
			Amount:       amount,
			BasePD:       basePD,
		},
		FloodRisk: flood,
		HeatRisk:  heat,
		Lat:       13.08,
		Lon:       80.27,
	}
}

func TestStress_FloodHaircut(t *testing.T) {
	row := testRow(testPropertyValue, 400_000, 0.02, 0.90, 0.0)

	got, err := Stress(row, testSevere)
	require.NoError(t, err)

	assert.InDelta(t, 550_000.0, got.StressedValue, 1e-6)
	assert.InDelta(t, 400_000.0/550_000.0, got.StressedLTV, 1e-12)
	assert.Equal(t, row, got.PortfolioRow)
}

func TestStress_HeatShock(t *testing.T) {
	row := testRow(testPropertyValue, 500_000, 0.02, 0.0, 0.80)

	got, err := Stress(row, testSevere)
	require.NoError(t, err)

	assert.InDelta(t, 0.10, got.StressedPD, 1e-12)
	assert.InDelta(t, 0.5, got.StressedLTV, 1e-12)
	assert.Equal(t, StatusSafe, got.Status)
}

func TestStress_HeatShockSafeUnlessLTVTrips(t *testing.T) {
	// Same PD shock as above, but the flood haircut pushes LTV past 0.90.
	row := testRow(testPropertyValue, 800_000, 0.02, 0.90, 0.80)

	got, err := Stress(row, testSevere)
	require.NoError(t, err)

	assert.InDelta(t, 0.10, got.StressedPD, 1e-12)
	assert.Greater(t, got.StressedLTV, CriticalLTV)
	assert.Equal(t, StatusCritical, got.Status)
}

func TestStress_PDTripsCritical(t *testing.T) {
	row := testRow(testPropertyValue, 100_000, 0.05, 0.0, 0.98)

	got, err := Stress(row, testSevere)
	require.NoError(t, err)

	assert.InDelta(t, 0.05*(1+0.98*5), got.StressedPD, 1e-12)
	assert.Equal(t, StatusCritical, got.Status)
}

func TestStress_ZeroSeverityIsIdentity(t *testing.T) {
	row := testRow(testPropertyValue, 700_000, 0.03, 0.95, 0.95)

	got, err := Stress(row, 0)
	require.NoError(t, err)

	assert.InDelta(t, float64(testPropertyValue), got.StressedValue, 1e-9)
	assert.InDelta(t, 0.7, got.StressedLTV, 1e-12)
	assert.InDelta(t, 0.03, got.StressedPD, 1e-12)
}

func TestStress_NonPositiveValueBoundary(t *testing.T) {
	t.Run("total haircut", func(t *testing.T) {
		_, err := Stress(testRow(testPropertyValue, 1, 0.02, 1.0, 0), 1.0)
		require.ErrorIs(t, err, ErrNonPositiveStressedValue)
	})

	t.Run("haircut beyond collateral", func(t *testing.T) {
		_, err := Stress(testRow(testPropertyValue, 1, 0.02, 0.9, 0), 2.0)
		require.ErrorIs(t, err, ErrNonPositiveStressedValue)
	})

	t.Run("worst in-range case stays positive", func(t *testing.T) {
		got, err := Stress(testRow(testPropertyValue, 1, 0.02, 1.0, 1.0), testSevere)
		require.NoError(t, err)
		assert.InDelta(t, 500_000.0, got.StressedValue, 1e-6)
	})
}

func TestStress_PositiveAcrossScenarios(t *testing.T) {
	for _, sc := range Scenarios() {
		for _, d := range DefaultDistricts() {
			row := Join(Loan{ID: 1, District: d.Name, PropertyVal: 3_000_000, Amount: 1_800_000, BasePD: 0.01}, d)
			got, err := Stress(row, sc.Severity)
			require.NoError(t, err, "%s / %s", sc.Key, d.Name)
			assert.Positive(t, got.StressedValue, "%s / %s", sc.Key, d.Name)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ltv  float64
		pd   float64
		want RiskStatus
	}{
		{"both below", 0.50, 0.05, StatusSafe},
		{"at LTV threshold", 0.90, 0.05, StatusSafe},
		{"at PD threshold", 0.50, 0.15, StatusSafe},
		{"both at threshold", 0.90, 0.15, StatusSafe},
		{"LTV above", 0.9001, 0.05, StatusCritical},
		{"PD above", 0.50, 0.1501, StatusCritical},
		{"both above", 1.20, 0.30, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ltv, tt.pd))
		})
	}
}

func TestClassify_Exhaustive(t *testing.T) {
	for ltv := 0.0; ltv <= 1.5; ltv += 0.05 {
		for pd := 0.0; pd <= 0.3; pd += 0.01 {
			got := Classify(ltv, pd)
			critical := ltv > CriticalLTV || pd > CriticalPD
			if critical {
				assert.Equal(t, StatusCritical, got, "ltv=%v pd=%v", ltv, pd)
			} else {
				assert.Equal(t, StatusSafe, got, "ltv=%v pd=%v", ltv, pd)
			}
		}
	}
}

func TestStressPortfolio_StopsOnFailure(t *testing.T) {
	rows := []PortfolioRow{
		testRow(testPropertyValue, 1, 0.02, 0.5, 0),
		testRow(testPropertyValue, 1, 0.02, 1.0, 0),
	}

	_, err := StressPortfolio(rows, 1.0)
	require.ErrorIs(t, err, ErrNonPositiveStressedValue)

	out, err := StressPortfolio(rows, testSevere)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestCriticalLoans_PreservesOrder(t *testing.T) {
	stressed := []StressedLoan{
		{PortfolioRow: PortfolioRow{Loan: Loan{ID: 1}}, Status: StatusCritical},
		{PortfolioRow: PortfolioRow{Loan: Loan{ID: 2}}, Status: StatusSafe},
		{PortfolioRow: PortfolioRow{Loan: Loan{ID: 3}}, Status: StatusCritical},
	}

	got := CriticalLoans(stressed)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
}

func TestLookupScenario(t *testing.T) {
	sc, err := LookupScenario("c")
	require.NoError(t, err)
	assert.InDelta(t, 0.50, sc.Severity, 1e-12)
	assert.Equal(t, "Scenario C: Severe (3.0°C)", sc.Name)

	_, err = LookupScenario("D")
	require.ErrorIs(t, err, ErrUnknownScenario)
}

func TestScenarios_FixedSeverities(t *testing.T) {
	var got []float64
	for _, sc := range Scenarios() {
		got = append(got, sc.Severity)
	}
	assert.Equal(t, []float64{0.15, 0.30, 0.50}, got)
}
