package ingestion

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fuel-station-monitor/internal/domain/station"
)

// triplePattern matches one brace-delimited sale; batches carry no separators.
var triplePattern = regexp.MustCompile(`\{[^}]+\}`)

// ParseTransactions extracts {timestamp,amount,volume} triples from a batch body.
// Malformed triples are returned in skipped and do not fail the batch.
func ParseTransactions(raw string) (txs []station.Transaction, skipped []string) {
	for _, chunk := range triplePattern.FindAllString(raw, -1) {
		tx, ok := parseTriple(chunk)
		if !ok {
			skipped = append(skipped, chunk)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

func parseTriple(chunk string) (station.Transaction, bool) {
	parts := strings.Split(strings.Trim(chunk, "{}"), ",")
	if len(parts) < 3 {
		return station.Transaction{}, false
	}

	// Unix seconds, as stamped by the controller
	ts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return station.Transaction{}, false
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return station.Transaction{}, false
	}
	volume, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || math.IsNaN(volume) || math.IsInf(volume, 0) {
		return station.Transaction{}, false
	}

	return station.Transaction{
		Time:   time.Unix(ts, 0),
		Amount: amount,
		Volume: volume,
	}, true
}
