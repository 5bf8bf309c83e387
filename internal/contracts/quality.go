package contracts

// Severity grades a quality issue
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Penalty returns the fixed score deduction for this severity
func (s Severity) Penalty() float64 {
	switch s {
	case SeverityCritical:
		return 0.30
	case SeverityHigh:
		return 0.15
	case SeverityMedium:
		return 0.05
	case SeverityLow:
		return 0.01
	default:
		return 0
	}
}

// IssueCategory classifies what kind of data a quality issue concerns
type IssueCategory string

const (
	CategorySchema     IssueCategory = "schema"
	CategoryWeight     IssueCategory = "weight"
	CategoryResolution IssueCategory = "resolution"
	CategoryEnrichment IssueCategory = "enrichment"
	CategoryCurrency   IssueCategory = "currency"
	CategoryValue      IssueCategory = "value"
)

// QualityIssue is one graded finding from a validation gate.
// Issues describe suspicious-but-completed work; they never block
// the pipeline.
type QualityIssue struct {
	Severity Severity      `json:"severity"`
	Category IssueCategory `json:"category"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	FixHint  string        `json:"fix_hint,omitempty"`
	ItemID   string        `json:"item_id,omitempty"`
	Phase    Phase         `json:"phase"`
}

// TrustworthyThreshold is the minimum score considered trustworthy
const TrustworthyThreshold = 0.95

// DataQuality is a monotonically decreasing score starting at 1.0,
// reduced by a fixed penalty per issue severity and floored at 0.
type DataQuality struct {
	Score  float64        `json:"score"`
	Issues []QualityIssue `json:"issues"`
}

// NewDataQuality returns a pristine quality object with score 1.0
func NewDataQuality() *DataQuality {
	return &DataQuality{Score: 1.0}
}

// Add records an issue and applies its severity penalty
func (q *DataQuality) Add(issue QualityIssue) {
	q.Issues = append(q.Issues, issue)
	q.Score -= issue.Severity.Penalty()
	if q.Score < 0 {
		q.Score = 0
	}
}

// AddAll records a batch of issues
func (q *DataQuality) AddAll(issues []QualityIssue) {
	for _, issue := range issues {
		q.Add(issue)
	}
}

// Merge folds another quality object into this one. The merged score
// re-applies the other object's penalties so merging never raises the
// score.
func (q *DataQuality) Merge(other *DataQuality) {
	if other == nil {
		return
	}
	q.AddAll(other.Issues)
}

// IsTrustworthy reports whether the score meets the trust threshold
func (q *DataQuality) IsTrustworthy() bool {
	return q.Score >= TrustworthyThreshold
}

// CountBySeverity returns issue counts keyed by severity
func (q *DataQuality) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range q.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// CountByCategory returns issue counts keyed by category
func (q *DataQuality) CountByCategory() map[IssueCategory]int {
	counts := make(map[IssueCategory]int)
	for _, issue := range q.Issues {
		counts[issue.Category]++
	}
	return counts
}

// HasCritical reports whether any critical issue was recorded
func (q *DataQuality) HasCritical() bool {
	for _, issue := range q.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
