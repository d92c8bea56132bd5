package financing_test

import (
	"testing"

	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestRecoveryMonths(t *testing.T) {
	tests := []struct {
		name     string
		investor string
		monthly  string
		expected int
		err      error
	}{
		{name: "exact division", investor: "9000", monthly: "3000", expected: 3},
		{name: "rounds up partial month", investor: "100000", monthly: "3000", expected: 34},
		{name: "one cent over rounds up", investor: "1000.01", monthly: "1000", expected: 2},
		{name: "principal below one payment", investor: "2500", monthly: "2500.50", expected: 1},
		{name: "no principal", investor: "0", monthly: "3000", expected: 0},
		{name: "zero monthly payment is rejected", investor: "100", monthly: "0", err: financing.ErrInvalidMonthlyPayment},
		{name: "negative monthly payment is rejected", investor: "100", monthly: "-5", err: financing.ErrInvalidMonthlyPayment},
		{name: "negative principal is rejected", investor: "-1", monthly: "100", err: financing.ErrInvalidInvestorAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			months, err := financing.RecoveryMonths(d(tt.investor), d(tt.monthly))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, 0, months)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, months)
		})
	}
}

func TestPhaseFor(t *testing.T) {
	assert.Equal(t, financing.PhaseRecovery, financing.PhaseFor(0, 3))
	assert.Equal(t, financing.PhaseRecovery, financing.PhaseFor(2, 3))
	assert.Equal(t, financing.PhaseProfit, financing.PhaseFor(3, 3))
	assert.Equal(t, financing.PhaseProfit, financing.PhaseFor(0, 0))
}

func TestSplitPayment(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		monthly  string
		recovery int
		percent  string
		investor string
		company  string
		phase    financing.Phase
	}{
		{name: "first month goes to investor", index: 0, monthly: "3000", recovery: 34, percent: "30", investor: "3000", company: "0", phase: financing.PhaseRecovery},
		{name: "last recovery month", index: 33, monthly: "3000", recovery: 34, percent: "30", investor: "3000", company: "0", phase: financing.PhaseRecovery},
		{name: "first profit month", index: 34, monthly: "3000", recovery: 34, percent: "30", investor: "900", company: "2100", phase: financing.PhaseProfit},
		{name: "profit share rounds to cents", index: 5, monthly: "1234.57", recovery: 2, percent: "33.33", investor: "411.48", company: "823.09", phase: financing.PhaseProfit},
		{name: "no investor keeps everything for company", index: 0, monthly: "1500", recovery: 0, percent: "0", investor: "0", company: "1500", phase: financing.PhaseProfit},
		{name: "full profit share", index: 10, monthly: "800", recovery: 1, percent: "100", investor: "800", company: "0", phase: financing.PhaseProfit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := financing.SplitPayment(tt.index, d(tt.monthly), tt.recovery, d(tt.percent))
			assert.Equal(t, tt.phase, split.Phase)
			assertDecimal(t, tt.investor, split.Investor)
			assertDecimal(t, tt.company, split.Company)
		})
	}
}

func TestSplitPayment_PortionsAlwaysSumToPayment(t *testing.T) {
	payments := []string{"0.01", "999.99", "1234.57", "3000", "15750.33"}
	percents := []string{"0", "12.5", "33.33", "66.67", "100"}

	for _, payment := range payments {
		for _, percent := range percents {
			for i := 0; i < 6; i++ {
				split := financing.SplitPayment(i, d(payment), 3, d(percent))
				assert.True(t, split.Investor.Add(split.Company).Equal(d(payment)),
					"payment %s percent %s month %d", payment, percent, i)
			}
		}
	}
}

func TestNewPlanner_Validation(t *testing.T) {
	tests := []struct {
		name  string
		terms financing.Terms
		err   error
	}{
		{
			name:  "zero monthly payment",
			terms: financing.Terms{MonthlyPayment: d("0"), InvestorAmount: d("1000"), ProfitPercent: d("10")},
			err:   financing.ErrInvalidMonthlyPayment,
		},
		{
			name:  "profit percent above 100",
			terms: financing.Terms{MonthlyPayment: d("100"), InvestorAmount: d("1000"), ProfitPercent: d("100.01")},
			err:   financing.ErrInvalidProfitPercent,
		},
		{
			name:  "negative profit percent",
			terms: financing.Terms{MonthlyPayment: d("100"), InvestorAmount: d("1000"), ProfitPercent: d("-1")},
			err:   financing.ErrInvalidProfitPercent,
		},
		{
			name:  "negative principal",
			terms: financing.Terms{MonthlyPayment: d("100"), InvestorAmount: d("-1000"), ProfitPercent: d("10")},
			err:   financing.ErrInvalidInvestorAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner, err := financing.NewPlanner(tt.terms)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, planner)
		})
	}
}

func TestPlanner_Plan(t *testing.T) {
	planner, err := financing.NewPlanner(financing.Terms{
		MonthlyPayment: d("3000"),
		InvestorAmount: d("9000"),
		ProfitPercent:  d("20"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, planner.RecoveryMonths())

	plan, err := planner.Plan(6)
	require.NoError(t, err)

	require.Len(t, plan.Months, 6)
	assert.True(t, plan.RecoveredWithinTerm)
	assertDecimal(t, "18000", plan.TotalContract)
	assertDecimal(t, "10800", plan.TotalInvestor)
	assertDecimal(t, "7200", plan.TotalCompany)
	assertDecimal(t, "1800", plan.InvestorProfit)

	assertDecimal(t, "6000", plan.Months[1].CumulativeInvestor)
	assertDecimal(t, "3000", plan.Months[1].RemainingPrincipal)
	assertDecimal(t, "0", plan.Months[2].RemainingPrincipal)
	assert.Equal(t, financing.PhaseProfit, plan.Months[3].Phase)
	assertDecimal(t, "600", plan.Months[3].Investor)
	assertDecimal(t, "2400", plan.Months[3].Company)
}

func TestPlanner_PlanShorterThanRecovery(t *testing.T) {
	planner, err := financing.NewPlanner(financing.Terms{
		MonthlyPayment: d("3000"),
		InvestorAmount: d("9000"),
		ProfitPercent:  d("20"),
	})
	require.NoError(t, err)

	plan, err := planner.Plan(2)
	require.NoError(t, err)

	assert.False(t, plan.RecoveredWithinTerm)
	assertDecimal(t, "-3000", plan.InvestorProfit)
	assertDecimal(t, "0", plan.TotalCompany)
}

func TestPlanner_PlanRejectsEmptyDuration(t *testing.T) {
	planner, err := financing.NewPlanner(financing.Terms{MonthlyPayment: d("100")})
	require.NoError(t, err)

	_, err = planner.Plan(0)
	assert.ErrorIs(t, err, financing.ErrInvalidDuration)

	_, err = planner.Split(-1)
	assert.ErrorIs(t, err, financing.ErrInvalidMonthIndex)
}
