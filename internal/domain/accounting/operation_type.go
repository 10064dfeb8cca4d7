package accounting

// OperationType identifies the business operation a journal entry records.
// Each one is mapped to a debit/credit account pair by an account
// determination rule.
type OperationType string

const (
	OperationPaymentSupplier OperationType = "PAYMENT_SUPPLIER"
	OperationPaymentInterest OperationType = "PAYMENT_INTEREST"
	OperationPaymentFine     OperationType = "PAYMENT_FINE"
	OperationPaymentDiscount OperationType = "PAYMENT_DISCOUNT"
	OperationPaymentBankFee  OperationType = "PAYMENT_BANK_FEE"

	OperationReceiptCustomer OperationType = "RECEIPT_CUSTOMER"
	OperationReceiptInterest OperationType = "RECEIPT_INTEREST"
	OperationReceiptFine     OperationType = "RECEIPT_FINE"
	OperationReceiptDiscount OperationType = "RECEIPT_DISCOUNT"

	OperationBillingRevenue    OperationType = "BILLING_REVENUE"
	OperationWithholdingIRRF   OperationType = "WITHHOLDING_IRRF"
	OperationWithholdingPIS    OperationType = "WITHHOLDING_PIS"
	OperationWithholdingCOFINS OperationType = "WITHHOLDING_COFINS"
	OperationWithholdingCSLL   OperationType = "WITHHOLDING_CSLL"
	OperationWithholdingISS    OperationType = "WITHHOLDING_ISS"
)

var allOperationTypes = []OperationType{
	OperationPaymentSupplier, OperationPaymentInterest, OperationPaymentFine, OperationPaymentDiscount, OperationPaymentBankFee,
	OperationReceiptCustomer, OperationReceiptInterest, OperationReceiptFine, OperationReceiptDiscount,
	OperationBillingRevenue, OperationWithholdingIRRF, OperationWithholdingPIS, OperationWithholdingCOFINS,
	OperationWithholdingCSLL, OperationWithholdingISS,
}

// AllOperationTypes returns every known operation type
func AllOperationTypes() []OperationType {
	out := make([]OperationType, len(allOperationTypes))
	copy(out, allOperationTypes)
	return out
}

// IsValid checks if the operation type is known
func (o OperationType) IsValid() bool {
	for _, known := range allOperationTypes {
		if o == known {
			return true
		}
	}
	return false
}

func (o OperationType) String() string {
	return string(o)
}
