package financing_test

import (
	"testing"

	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recovery(amount string) financing.Collection {
	return financing.Collection{Portion: d(amount), Phase: financing.PhaseRecovery}
}

func profit(amount string) financing.Collection {
	return financing.Collection{Portion: d(amount), Phase: financing.PhaseProfit}
}

func TestLedger_StatusProgression(t *testing.T) {
	ledger := financing.NewLedger(d("9000"))
	assert.Equal(t, financing.LedgerActive, ledger.Status)

	require.NoError(t, ledger.Apply(recovery("3000")))
	require.NoError(t, ledger.Apply(recovery("3000")))
	assert.Equal(t, financing.LedgerActive, ledger.Status)
	assertDecimal(t, "3000", ledger.Remaining())
	assertDecimal(t, "66.67", ledger.Progress())

	require.NoError(t, ledger.Apply(recovery("3000")))
	assert.Equal(t, financing.LedgerRecovered, ledger.Status)
	assertDecimal(t, "9000", ledger.Recovered)
	assertDecimal(t, "0", ledger.Earned)

	require.NoError(t, ledger.Apply(profit("600")))
	assert.Equal(t, financing.LedgerEarning, ledger.Status)
	assertDecimal(t, "600", ledger.Earned)
	assert.Equal(t, 1, ledger.ProfitCollections)
}

func TestLedger_RecoveryOvershootIsEarned(t *testing.T) {
	ledger := financing.NewLedger(d("10000"))
	for i := 0; i < 4; i++ {
		require.NoError(t, ledger.Apply(recovery("3000")))
	}

	assertDecimal(t, "10000", ledger.Recovered)
	assertDecimal(t, "2000", ledger.Earned)
	assert.Equal(t, financing.LedgerRecovered, ledger.Status)
	assertDecimal(t, "100", ledger.Progress())
}

func TestLedger_ProfitBeforeRecoveryStaysActive(t *testing.T) {
	ledger := financing.NewLedger(d("6000"))
	require.NoError(t, ledger.Apply(profit("500")))
	assert.Equal(t, financing.LedgerActive, ledger.Status)

	require.NoError(t, ledger.Apply(recovery("3000")))
	require.NoError(t, ledger.Apply(recovery("3000")))
	assert.Equal(t, financing.LedgerEarning, ledger.Status)
}

func TestLedger_ZeroPrincipalStartsRecovered(t *testing.T) {
	ledger := financing.NewLedger(d("0"))
	assert.Equal(t, financing.LedgerRecovered, ledger.Status)
	assertDecimal(t, "100", ledger.Progress())
}

func TestLedger_CompletedRejectsCollections(t *testing.T) {
	ledger := financing.NewLedger(d("1000"))
	ledger.Complete()

	err := ledger.Apply(recovery("100"))
	assert.ErrorIs(t, err, financing.ErrLedgerCompleted)
	assert.Equal(t, financing.LedgerCompleted, ledger.Status)
}

func TestLedger_RejectsNegativePortion(t *testing.T) {
	ledger := financing.NewLedger(d("1000"))
	assert.ErrorIs(t, ledger.Apply(recovery("-1")), financing.ErrNegativePortion)
}

func TestRebuildLedger(t *testing.T) {
	collections := []financing.Collection{recovery("3000"), recovery("3000"), recovery("3000"), profit("600")}

	full, err := financing.RebuildLedger(d("9000"), collections, false)
	require.NoError(t, err)
	assert.Equal(t, financing.LedgerEarning, full.Status)

	// reversing the third recovery payment moves the loan back to active
	reversed, err := financing.RebuildLedger(d("9000"), []financing.Collection{collections[0], collections[1], collections[3]}, false)
	require.NoError(t, err)
	assert.Equal(t, financing.LedgerActive, reversed.Status)
	assertDecimal(t, "6000", reversed.Recovered)
	assertDecimal(t, "600", reversed.Earned)

	completed, err := financing.RebuildLedger(d("9000"), collections, true)
	require.NoError(t, err)
	assert.Equal(t, financing.LedgerCompleted, completed.Status)
}
