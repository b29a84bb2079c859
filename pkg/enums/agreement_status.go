package enums

// AgreementStatus tracks a sale-purchase agreement document.
type AgreementStatus string

const (
	AgreementStatusDraft  AgreementStatus = "DRAFT"
	AgreementStatusSigned AgreementStatus = "SIGNED"
)

func (a AgreementStatus) String() string {
	return string(a)
}

func (a AgreementStatus) IsValid() bool {
	return a == AgreementStatusDraft || a == AgreementStatusSigned
}
