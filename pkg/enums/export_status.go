package enums

import "fmt"

// ExportStatus tracks a staged crowdfunding export through admin review.
type ExportStatus string

const (
	ExportStatusPending  ExportStatus = "PENDING"
	ExportStatusApproved ExportStatus = "APPROVED"
	ExportStatusRejected ExportStatus = "REJECTED"
	ExportStatusExported ExportStatus = "EXPORTED"
)

var validExportStatuses = []ExportStatus{
	ExportStatusPending,
	ExportStatusApproved,
	ExportStatusRejected,
	ExportStatusExported,
}

// String implements fmt.Stringer.
func (e ExportStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExportStatus.
func (e ExportStatus) IsValid() bool {
	for _, candidate := range validExportStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExportStatus converts raw input into an ExportStatus.
func ParseExportStatus(value string) (ExportStatus, error) {
	for _, candidate := range validExportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export status %q", value)
}
