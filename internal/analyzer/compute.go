package analyzer

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finchhealth/denialwatch/internal/records"
	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

// confidenceCap bounds every confidence score; no cluster is ever reported
// as certain.
var confidenceCap = decimal.RequireFromString("0.95")

// samplePivot controls how fast confidence grows with sample size:
// a cluster of samplePivot records scores half the size component.
var samplePivot = decimal.NewFromInt(8)

// BuildClusters buckets current-window records by reason code, computes
// per-bucket count and amount at risk, joins the prior window's counts for
// trend, and ranks by amount at risk descending with count as tiebreaker.
// Reason code breaks exact ties so the ordering is total and reproducible.
func BuildClusters(current, prior []records.Record) []Cluster {
	type bucket struct {
		count  int
		amount decimal.Decimal
	}

	currentBuckets := make(map[taxonomy.Code]*bucket)
	for _, rec := range current {
		b, ok := currentBuckets[rec.ReasonCode]
		if !ok {
			b = &bucket{amount: decimal.Zero}
			currentBuckets[rec.ReasonCode] = b
		}
		b.count++
		b.amount = b.amount.Add(rec.AmountAtRisk)
	}

	priorCounts := make(map[taxonomy.Code]int)
	for _, rec := range prior {
		priorCounts[rec.ReasonCode]++
	}

	clusters := make([]Cluster, 0, len(currentBuckets))
	for code, b := range currentBuckets {
		priorCount := priorCounts[code]
		clusters = append(clusters, Cluster{
			ReasonCode:   code,
			Class:        taxonomy.ClassOf(code),
			Count:        b.count,
			AmountAtRisk: b.amount,
			PriorCount:   priorCount,
			TrendDelta:   b.count - priorCount,
			Confidence:   confidence(b.count, priorCount, len(prior) > 0),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if !clusters[i].AmountAtRisk.Equal(clusters[j].AmountAtRisk) {
			return clusters[i].AmountAtRisk.GreaterThan(clusters[j].AmountAtRisk)
		}
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].ReasonCode < clusters[j].ReasonCode
	})

	return clusters
}

// confidence scores a cluster as a monotonic function of sample size and
// stability across the two windows, capped below certainty. With no prior
// window, stability degrades to a neutral 0.5.
func confidence(count, priorCount int, hasPrior bool) string {
	n := decimal.NewFromInt(int64(count))
	size := n.Div(n.Add(samplePivot))

	stability := decimal.RequireFromString("0.5")
	if hasPrior {
		// 1 - |delta| / (count + priorCount)
		total := decimal.NewFromInt(int64(count + priorCount))
		delta := decimal.NewFromInt(int64(count - priorCount)).Abs()
		stability = decimal.NewFromInt(1).Sub(delta.Div(total))
	}

	score := confidenceCap.Mul(size).Mul(stability)
	return score.Round(4).StringFixed(4)
}

// TotalAtRisk sums amount at risk across records.
func TotalAtRisk(recs []records.Record) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range recs {
		total = total.Add(rec.AmountAtRisk)
	}
	return total
}
