package financing_test

import (
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestGenerateSchedule(t *testing.T) {
	contract := financing.Contract{
		StartDate:      date(2026, time.January, 15),
		DurationMonths: 3,
		PaymentDay:     31,
		ServiceDay:     5,
		Terms: financing.Terms{
			MonthlyPayment: d("1000"),
			InvestorAmount: d("1500"),
			ProfitPercent:  d("50"),
		},
	}
	today := date(2026, time.February, 10)

	entries, err := financing.GenerateSchedule(contract, today)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	expected := []struct {
		period      string
		due         time.Time
		service     time.Time
		investor    string
		company     string
		phase       financing.Phase
		paymentPast bool
		servicePast bool
	}{
		{"2026-01", date(2026, time.January, 31), date(2026, time.January, 5), "1000", "0", financing.PhaseRecovery, true, true},
		{"2026-02", date(2026, time.February, 28), date(2026, time.February, 5), "1000", "0", financing.PhaseRecovery, false, true},
		{"2026-03", date(2026, time.March, 31), date(2026, time.March, 5), "500", "500", financing.PhaseProfit, false, false},
	}

	for i, want := range expected {
		got := entries[i]
		assert.Equal(t, i, got.Index)
		assert.Equal(t, want.period, got.Period)
		assert.True(t, want.due.Equal(got.DueDate), "due date of %s", want.period)
		assert.True(t, want.service.Equal(got.ServiceDate), "service date of %s", want.period)
		assertDecimal(t, "1000", got.Amount)
		assertDecimal(t, want.investor, got.Investor)
		assertDecimal(t, want.company, got.Company)
		assert.Equal(t, want.phase, got.Phase)
		assert.Equal(t, want.phase == financing.PhaseRecovery, got.IsRecovery())
		assert.Equal(t, want.paymentPast, got.PaymentPast, "payment past of %s", want.period)
		assert.Equal(t, want.servicePast, got.ServicePast, "service past of %s", want.period)
	}
}

func TestGenerateSchedule_ClampsToLeapDay(t *testing.T) {
	entries, err := financing.GenerateSchedule(financing.Contract{
		StartDate:      date(2028, time.February, 1),
		DurationMonths: 1,
		PaymentDay:     30,
		ServiceDay:     31,
		Terms:          financing.Terms{MonthlyPayment: d("100")},
	}, date(2028, time.January, 1))
	require.NoError(t, err)

	assert.True(t, date(2028, time.February, 29).Equal(entries[0].DueDate))
	assert.True(t, date(2028, time.February, 29).Equal(entries[0].ServiceDate))
}

func TestGenerateSchedule_CrossesYearBoundary(t *testing.T) {
	entries, err := financing.GenerateSchedule(financing.Contract{
		StartDate:      date(2026, time.November, 20),
		DurationMonths: 3,
		PaymentDay:     10,
		ServiceDay:     10,
		Terms:          financing.Terms{MonthlyPayment: d("100")},
	}, date(2026, time.November, 1))
	require.NoError(t, err)

	periods := []string{entries[0].Period, entries[1].Period, entries[2].Period}
	assert.Equal(t, []string{"2026-11", "2026-12", "2027-01"}, periods)
	// the first due date may precede the start date within the start month
	assert.True(t, date(2026, time.November, 10).Equal(entries[0].DueDate))
}

func TestGenerateSchedule_IsDeterministic(t *testing.T) {
	contract := financing.Contract{
		StartDate:      date(2026, time.March, 1),
		DurationMonths: 24,
		PaymentDay:     5,
		ServiceDay:     20,
		Terms:          financing.Terms{MonthlyPayment: d("2750.50"), InvestorAmount: d("30000"), ProfitPercent: d("25")},
	}
	today := date(2026, time.June, 1)

	first, err := financing.GenerateSchedule(contract, today)
	require.NoError(t, err)
	second, err := financing.GenerateSchedule(contract, today)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	recovery := 0
	for _, e := range first {
		assert.True(t, e.Investor.Add(e.Company).Equal(e.Amount))
		if e.IsRecovery() {
			recovery++
		}
	}
	assert.Equal(t, 11, recovery)
}

func TestGenerateSchedule_Validation(t *testing.T) {
	base := financing.Contract{
		StartDate:      date(2026, time.January, 1),
		DurationMonths: 12,
		PaymentDay:     1,
		ServiceDay:     1,
		Terms:          financing.Terms{MonthlyPayment: d("100")},
	}

	tests := []struct {
		name   string
		mutate func(c *financing.Contract)
		err    error
	}{
		{name: "zero duration", mutate: func(c *financing.Contract) { c.DurationMonths = 0 }, err: financing.ErrInvalidDuration},
		{name: "payment day zero", mutate: func(c *financing.Contract) { c.PaymentDay = 0 }, err: financing.ErrInvalidDayOfMonth},
		{name: "service day 32", mutate: func(c *financing.Contract) { c.ServiceDay = 32 }, err: financing.ErrInvalidDayOfMonth},
		{name: "zero monthly payment", mutate: func(c *financing.Contract) { c.Terms.MonthlyPayment = d("0") }, err: financing.ErrInvalidMonthlyPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			_, err := financing.GenerateSchedule(c, date(2026, time.January, 1))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestIsOverdue(t *testing.T) {
	due := date(2026, time.March, 1)
	mexico := time.FixedZone("CST", -6*3600)

	assert.False(t, financing.IsOverdue(due, date(2026, time.February, 28)))
	assert.False(t, financing.IsOverdue(due, date(2026, time.March, 1)))
	assert.True(t, financing.IsOverdue(due, date(2026, time.March, 2)))
	// late evening on the due date in local time is still the due date
	assert.False(t, financing.IsOverdue(due, time.Date(2026, time.March, 1, 23, 30, 0, 0, mexico)))
}

func TestMonthsElapsed(t *testing.T) {
	start := date(2026, time.January, 15)

	tests := []struct {
		name     string
		today    time.Time
		duration int
		want     int
	}{
		{"before start", date(2026, time.January, 14), 12, 0},
		{"start day", start, 12, 1},
		{"later in the start month", date(2026, time.January, 31), 12, 1},
		{"third month", date(2026, time.March, 1), 12, 3},
		{"across the year", date(2027, time.February, 10), 24, 14},
		{"capped at duration", date(2027, time.June, 1), 6, 6},
		{"no duration", date(2026, time.March, 1), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, financing.MonthsElapsed(start, tt.today, tt.duration))
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		year      int
		month     time.Month
		n         int
		wantYear  int
		wantMonth time.Month
	}{
		{2026, time.January, 0, 2026, time.January},
		{2026, time.December, 1, 2027, time.January},
		{2026, time.March, 25, 2028, time.April},
		{2026, time.January, -1, 2025, time.December},
		{2026, time.January, -13, 2024, time.December},
	}

	for _, tt := range tests {
		y, m := financing.AddMonths(tt.year, tt.month, tt.n)
		assert.Equal(t, tt.wantYear, y)
		assert.Equal(t, tt.wantMonth, m)
	}
}

func TestParsePeriod(t *testing.T) {
	y, m, err := financing.ParsePeriod("2027-02")
	require.NoError(t, err)
	assert.Equal(t, 2027, y)
	assert.Equal(t, time.February, m)

	_, _, err = financing.ParsePeriod("2027-13")
	assert.Error(t, err)
}
