package analyzer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finchhealth/denialwatch/internal/analyzer"
	"github.com/finchhealth/denialwatch/internal/records"
	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

func rec(code taxonomy.Code, amount string) records.Record {
	return records.Record{
		ReasonCode:   code,
		AmountAtRisk: decimal.RequireFromString(amount),
	}
}

func TestBuildClustersRanking(t *testing.T) {
	current := []records.Record{
		rec(taxonomy.CodeEligibility, "100.00"),
		rec(taxonomy.CodeEligibility, "50.00"),
		rec(taxonomy.CodePriorAuth, "500.00"),
		rec(taxonomy.CodeCodingInvalid, "150.00"),
		rec(taxonomy.CodeCodingInvalid, "0.00"),
		rec(taxonomy.CodeCodingInvalid, "0.00"),
	}

	clusters := analyzer.BuildClusters(current, nil)
	if len(clusters) != 3 {
		t.Fatalf("clusters: got %d, want 3", len(clusters))
	}

	// amount at risk descending
	if clusters[0].ReasonCode != taxonomy.CodePriorAuth {
		t.Errorf("rank 1: got %s, want %s", clusters[0].ReasonCode, taxonomy.CodePriorAuth)
	}
	// ELIG and CODE tie at 150.00; count breaks the tie (3 > 2)
	if clusters[1].ReasonCode != taxonomy.CodeCodingInvalid {
		t.Errorf("rank 2: got %s, want %s", clusters[1].ReasonCode, taxonomy.CodeCodingInvalid)
	}
	if clusters[2].ReasonCode != taxonomy.CodeEligibility {
		t.Errorf("rank 3: got %s, want %s", clusters[2].ReasonCode, taxonomy.CodeEligibility)
	}

	if clusters[1].Count != 3 || clusters[1].AmountAtRisk.String() != "150" {
		t.Errorf("coding cluster: %+v", clusters[1])
	}
	if clusters[0].Class != taxonomy.ClassCoverage {
		t.Errorf("class: got %s", clusters[0].Class)
	}
}

func TestBuildClustersFullTieBreaksOnCode(t *testing.T) {
	current := []records.Record{
		rec(taxonomy.CodeBundling, "100.00"),
		rec(taxonomy.CodePriorAuth, "100.00"),
	}

	clusters := analyzer.BuildClusters(current, nil)
	if len(clusters) != 2 {
		t.Fatalf("clusters: got %d, want 2", len(clusters))
	}
	if clusters[0].ReasonCode != taxonomy.CodePriorAuth || clusters[1].ReasonCode != taxonomy.CodeBundling {
		t.Errorf("code tiebreak: got %s, %s", clusters[0].ReasonCode, clusters[1].ReasonCode)
	}
}

func TestBuildClustersTrend(t *testing.T) {
	current := []records.Record{
		rec(taxonomy.CodeEligibility, "100.00"),
		rec(taxonomy.CodeEligibility, "100.00"),
		rec(taxonomy.CodeEligibility, "100.00"),
		rec(taxonomy.CodeTimelyFiling, "50.00"),
	}
	prior := []records.Record{
		rec(taxonomy.CodeEligibility, "80.00"),
		rec(taxonomy.CodeDuplicateClaim, "10.00"),
	}

	clusters := analyzer.BuildClusters(current, prior)

	byCode := make(map[taxonomy.Code]analyzer.Cluster)
	for _, c := range clusters {
		byCode[c.ReasonCode] = c
	}

	elig := byCode[taxonomy.CodeEligibility]
	if elig.PriorCount != 1 || elig.TrendDelta != 2 {
		t.Errorf("eligibility trend: prior %d delta %d, want 1/2", elig.PriorCount, elig.TrendDelta)
	}

	// new in current window
	filing := byCode[taxonomy.CodeTimelyFiling]
	if filing.PriorCount != 0 || filing.TrendDelta != 1 {
		t.Errorf("timely filing trend: prior %d delta %d, want 0/1", filing.PriorCount, filing.TrendDelta)
	}

	// prior-only codes never produce a cluster
	if _, ok := byCode[taxonomy.CodeDuplicateClaim]; ok {
		t.Error("prior-only code produced a cluster")
	}
}

func TestConfidenceCapped(t *testing.T) {
	limit := decimal.RequireFromString("0.95")

	// an enormous, perfectly stable cluster must still score under the cap
	var current, prior []records.Record
	for i := 0; i < 10000; i++ {
		current = append(current, rec(taxonomy.CodeEligibility, "1.00"))
		prior = append(prior, rec(taxonomy.CodeEligibility, "1.00"))
	}

	clusters := analyzer.BuildClusters(current, prior)
	score := decimal.RequireFromString(clusters[0].Confidence)
	if score.GreaterThanOrEqual(limit) {
		t.Errorf("confidence %s not under cap %s", score, limit)
	}
}

func TestConfidenceMonotonicInSampleSize(t *testing.T) {
	small := analyzer.BuildClusters([]records.Record{
		rec(taxonomy.CodeEligibility, "1.00"),
	}, nil)
	large := analyzer.BuildClusters([]records.Record{
		rec(taxonomy.CodeEligibility, "1.00"),
		rec(taxonomy.CodeEligibility, "1.00"),
		rec(taxonomy.CodeEligibility, "1.00"),
		rec(taxonomy.CodeEligibility, "1.00"),
	}, nil)

	smallScore := decimal.RequireFromString(small[0].Confidence)
	largeScore := decimal.RequireFromString(large[0].Confidence)
	if !largeScore.GreaterThan(smallScore) {
		t.Errorf("confidence did not grow with sample size: %s vs %s", smallScore, largeScore)
	}
}

func TestBuildClustersDeterministic(t *testing.T) {
	current := []records.Record{
		rec(taxonomy.CodeEligibility, "100.00"),
		rec(taxonomy.CodePriorAuth, "100.00"),
		rec(taxonomy.CodeCodingInvalid, "250.00"),
		rec(taxonomy.CodeUncategorized, "75.50"),
		rec(taxonomy.CodeEligibility, "25.00"),
	}
	prior := []records.Record{
		rec(taxonomy.CodeEligibility, "90.00"),
		rec(taxonomy.CodeCodingInvalid, "10.00"),
	}

	first, err := json.Marshal(analyzer.BuildClusters(current, prior))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for i := 0; i < 20; i++ {
		again, err := json.Marshal(analyzer.BuildClusters(current, prior))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d produced different output:\n%s\n%s", i, first, again)
		}
	}
}

func TestBuildRecommendations(t *testing.T) {
	current := []records.Record{
		rec(taxonomy.CodeMedicalNecessity, "5000.00"),
		rec(taxonomy.CodeEligibility, "1000.00"),
		rec(taxonomy.CodeTimelyFiling, "500.00"),
		rec(taxonomy.CodeBundling, "100.00"),
		rec(taxonomy.CodeUncategorized, "50.00"),
	}

	clusters := analyzer.BuildClusters(current, nil)
	recs := analyzer.BuildRecommendations(clusters)

	if len(recs) != 3 {
		t.Fatalf("recommendations: got %d, want 3", len(recs))
	}

	// one per top-ranked cluster, in rank order
	for i, r := range recs {
		if r.ReasonCode != clusters[i].ReasonCode {
			t.Errorf("recommendation %d: got %s, want %s", i, r.ReasonCode, clusters[i].ReasonCode)
		}
		if r.Text == "" || !strings.Contains(r.Text, taxonomy.Describe(r.ReasonCode)) {
			t.Errorf("recommendation %d text: %q", i, r.Text)
		}
	}
}

func TestBuildRecommendationsFewerClusters(t *testing.T) {
	clusters := analyzer.BuildClusters([]records.Record{
		rec(taxonomy.CodeEligibility, "100.00"),
	}, nil)

	recs := analyzer.BuildRecommendations(clusters)
	if len(recs) != 1 {
		t.Fatalf("recommendations: got %d, want 1", len(recs))
	}

	if got := analyzer.BuildRecommendations(nil); len(got) != 0 {
		t.Errorf("recommendations for no clusters: got %d, want 0", len(got))
	}
}

func TestTotalAtRisk(t *testing.T) {
	recs := []records.Record{
		rec(taxonomy.CodeEligibility, "100.10"),
		rec(taxonomy.CodePriorAuth, "0.90"),
		rec(taxonomy.CodeBundling, "0"),
	}

	if got := analyzer.TotalAtRisk(recs); got.String() != "101" {
		t.Errorf("total: got %s, want 101", got)
	}
	if got := analyzer.TotalAtRisk(nil); !got.IsZero() {
		t.Errorf("empty total: got %s, want 0", got)
	}
}
