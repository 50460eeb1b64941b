package model

// Severity labels a damage score bucket.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// SeverityFor buckets a damage score into its label.
func SeverityFor(score float64) Severity {
	switch {
	case score < 0.2:
		return SeverityMild
	case score < 0.4:
		return SeverityModerate
	case score < 0.7:
		return SeveritySevere
	default:
		return SeverityCritical
	}
}
