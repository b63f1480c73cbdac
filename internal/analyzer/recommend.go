package analyzer

import (
	"fmt"

	"github.com/finchhealth/denialwatch/internal/taxonomy"
)

// topN bounds how many leading clusters receive a recommendation.
const topN = 3

// recommendation templates, fixed per reason-code class. The %s slots are
// the cluster's reason description and count.
var templates = map[taxonomy.Class]string{
	taxonomy.ClassCoverage:       "Verify coverage before submission: %s drove %d rejections. Route affected claims through eligibility and authorization checks at registration.",
	taxonomy.ClassClinical:       "Strengthen clinical documentation: %s drove %d rejections. Attach supporting notes and necessity justification before resubmitting.",
	taxonomy.ClassAdministrative: "Tighten submission workflow: %s drove %d rejections. Review filing deadlines, duplicate checks, and patient identity capture.",
	taxonomy.ClassTechnical:      "Audit coding practice: %s drove %d rejections. Have coders re-validate procedure, modifier, and unit assignments against payer rules.",
	taxonomy.ClassUnknown:        "Review unmapped payer reasons: %s drove %d rejections. Triage the flagged records and extend the payer code mapping where a pattern emerges.",
}

// BuildRecommendations generates one templated action item per top-ranked
// cluster. Output order follows cluster rank, so it is as deterministic as
// the ranking itself.
func BuildRecommendations(clusters []Cluster) []Recommendation {
	n := min(topN, len(clusters))
	recs := make([]Recommendation, 0, n)

	for _, c := range clusters[:n] {
		recs = append(recs, Recommendation{
			ReasonCode: c.ReasonCode,
			Text:       fmt.Sprintf(templates[c.Class], taxonomy.Describe(c.ReasonCode), c.Count),
		})
	}

	return recs
}
