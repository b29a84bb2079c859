package enums

import "fmt"

// SyncJobType selects the outbound HTTP verb for a crowdfunding sync job.
type SyncJobType string

const (
	SyncJobTypeCrowdfundingPost  SyncJobType = "CROWDFUNDING_POST"
	SyncJobTypeCrowdfundingPatch SyncJobType = "CROWDFUNDING_PATCH"
)

func (t SyncJobType) String() string {
	return string(t)
}

func (t SyncJobType) IsValid() bool {
	return t == SyncJobTypeCrowdfundingPost || t == SyncJobTypeCrowdfundingPatch
}

// SyncJobStatus tracks a durable outbound job through retries.
type SyncJobStatus string

const (
	SyncJobStatusPending    SyncJobStatus = "PENDING"
	SyncJobStatusProcessing SyncJobStatus = "PROCESSING"
	SyncJobStatusCompleted  SyncJobStatus = "COMPLETED"
	SyncJobStatusFailed     SyncJobStatus = "FAILED"
)

var validSyncJobStatuses = []SyncJobStatus{
	SyncJobStatusPending,
	SyncJobStatusProcessing,
	SyncJobStatusCompleted,
	SyncJobStatusFailed,
}

// String implements fmt.Stringer.
func (s SyncJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncJobStatus.
func (s SyncJobStatus) IsValid() bool {
	for _, candidate := range validSyncJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncJobType converts raw input into a SyncJobType.
func ParseSyncJobType(value string) (SyncJobType, error) {
	switch SyncJobType(value) {
	case SyncJobTypeCrowdfundingPost:
		return SyncJobTypeCrowdfundingPost, nil
	case SyncJobTypeCrowdfundingPatch:
		return SyncJobTypeCrowdfundingPatch, nil
	}
	return "", fmt.Errorf("invalid sync job type %q", value)
}
