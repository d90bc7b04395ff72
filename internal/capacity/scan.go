package capacity

import "github.com/tablewise/seating/internal/domain"

// Finding identifies one anomaly in a stored capacity document
type Finding string

// Scanner findings. Several may co-occur on one document.
const (
	FindingMissingCounts         Finding = "missing-counts"
	FindingTotalCountInvalid     Finding = "totalCount-invalid"
	FindingCountMismatch         Finding = "count-mismatch"
	FindingByTimeSlotInvalid     Finding = "byTimeSlot-invalid"
	FindingByTimeSlotSumMismatch Finding = "byTimeSlot-sum-mismatch"
)

// Scan audits a raw capacity document and returns every independent anomaly
// it can detect. The scan is read-only; corrective writes are a separate
// cleanup pass that applies the normalizer's output.
func Scan(raw domain.RawCapacityDocument) []Finding {
	var findings []Finding

	if raw.TotalCount == nil && raw.Count == nil {
		findings = append(findings, FindingMissingCounts)
	}
	if raw.TotalCount != nil && (!isFinite(*raw.TotalCount) || *raw.TotalCount < 0) {
		findings = append(findings, FindingTotalCountInvalid)
	}
	if raw.TotalCount != nil && raw.Count != nil && *raw.Count != *raw.TotalCount {
		findings = append(findings, FindingCountMismatch)
	}

	if raw.ByTimeSlot != nil {
		sum := 0.0
		valid := true
		for _, v := range raw.ByTimeSlot {
			f, ok := numericSlotValue(v)
			if !ok {
				findings = append(findings, FindingByTimeSlotInvalid)
				valid = false
				break
			}
			sum += f
		}
		if valid {
			if total, ok := effectiveTotal(raw); ok && sum != total {
				findings = append(findings, FindingByTimeSlotSumMismatch)
			}
		}
	}

	return findings
}

// effectiveTotal returns the document's declared total when a usable one
// exists: totalCount if present and valid, else the legacy count field
func effectiveTotal(raw domain.RawCapacityDocument) (float64, bool) {
	if raw.TotalCount != nil && isFinite(*raw.TotalCount) && *raw.TotalCount >= 0 {
		return *raw.TotalCount, true
	}
	if raw.Count != nil && isFinite(*raw.Count) && *raw.Count >= 0 {
		return *raw.Count, true
	}
	return 0, false
}
