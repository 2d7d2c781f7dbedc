package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

func TestParseTransactions(t *testing.T) {
	t.Parallel()

	txs, skipped := ParseTransactions("{1717200000,10,2}{1717200060, 15.5 ,3.25}")
	require.Len(t, txs, 2)
	assert.Empty(t, skipped)

	assert.Equal(t, time.Unix(1717200000, 0), txs[0].Time)
	assert.InDelta(t, 10, txs[0].Amount, 1e-9)
	assert.InDelta(t, 2, txs[0].Volume, 1e-9)
	assert.InDelta(t, 15.5, txs[1].Amount, 1e-9)
	assert.InDelta(t, 3.25, txs[1].Volume, 1e-9)
}

func TestParseTransactionsSkipsMalformedTriples(t *testing.T) {
	t.Parallel()

	txs, skipped := ParseTransactions("{1717200000,10,2}{bad,1,1}{1717200060,5}{1717200120,7,NaN}{1717200180,8,1}")
	require.Len(t, txs, 2)
	assert.Equal(t, []string{"{bad,1,1}", "{1717200060,5}", "{1717200120,7,NaN}"}, skipped)
	assert.InDelta(t, 8, txs[1].Amount, 1e-9)
}

func TestTransactionBatchNeedsOneValidTriple(t *testing.T) {
	t.Parallel()
	p := testParser()

	_, err := p.ParsePayload(station.ClassDispenser, 7, "{x,y,z}")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	_, err = p.ParsePayload(station.ClassDispenser, 7, "no braces here")
	assert.ErrorIs(t, err, apperrors.ErrParse)
}
