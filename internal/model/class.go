package model

// PaymentClass labels the purpose of a transaction. The labels double as the
// display fallback in the audit sheet, so they keep their German names.
type PaymentClass string

// Payment classes in priority order; classification picks the first match.
const (
	ClassRent        PaymentClass = "Miete"
	ClassUtilities   PaymentClass = "Nebenkosten"
	ClassBackPayment PaymentClass = "Nachzahlung"
	ClassInstallment PaymentClass = "Rate"
	ClassFee         PaymentClass = "Honorar"
	ClassOther       PaymentClass = "Sonstiges"
)

// Postable reports whether transactions of this class are eligible for ledger
// accumulation. "Sonstiges" lines are informational only.
func (c PaymentClass) Postable() bool {
	switch c {
	case ClassRent, ClassUtilities, ClassBackPayment, ClassInstallment, ClassFee:
		return true
	}
	return false
}

// MonthCodes lists the ledger month short codes in calendar order. Index i
// corresponds to calendar month i+1.
var MonthCodes = [12]string{
	"Jan", "Feb", "Mrz", "Apr", "Mai", "Jun",
	"Jul", "Aug", "Sep", "Okt", "Nov", "Dez",
}

// MonthIndex returns the zero-based calendar index for a month code, or -1
// when the code is unknown.
func MonthIndex(code string) int {
	for i, c := range MonthCodes {
		if c == code {
			return i
		}
	}
	return -1
}
