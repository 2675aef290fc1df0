package model

// IssueType 质量问题类型
type IssueType string

const (
	IssueMissingField IssueType = "missing_field"
	IssueTypeMismatch IssueType = "type_mismatch"
	IssueDuplicate    IssueType = "duplicate"
	IssueOutlier      IssueType = "outlier"
)

// IssueSeverity 问题严重程度
type IssueSeverity string

const (
	SeverityHigh   IssueSeverity = "high"
	SeverityMedium IssueSeverity = "medium"
	SeverityLow    IssueSeverity = "low"
)

// QualityIssue 一条结构化质量问题
type QualityIssue struct {
	Type         IssueType     `json:"type"`
	Field        string        `json:"field"`
	AffectedRows []int         `json:"affectedRows"`
	Severity     IssueSeverity `json:"severity"`
	Suggestion   string        `json:"suggestion"`
}

// QualityLevel 质量等级
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
)

// QualityReport 质量评估报告（只读产物）
type QualityReport struct {
	CompletenessScore float64        `json:"completenessScore"`
	AccuracyScore     float64        `json:"accuracyScore"`
	ConsistencyScore  float64        `json:"consistencyScore"`
	OverallScore      float64        `json:"overallScore"`
	QualityLevel      QualityLevel   `json:"qualityLevel"`
	Issues            []QualityIssue `json:"issues"`
	RecordCount       int            `json:"recordCount"`
}
