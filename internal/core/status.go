package core

// PaidAmount returns the sum of the part amounts.
func PaidAmount(parts []PaymentPart) int64 {
	var paid int64
	for _, p := range parts {
		paid += p.Amount
	}
	return paid
}

// DeriveStatus computes a target's status from its recorded parts.
// Overpayment resolves to Paid.
func DeriveStatus(totalAmount int64, parts []PaymentPart) PaymentStatus {
	paid := PaidAmount(parts)
	switch {
	case paid == 0:
		return Pending
	case paid >= totalAmount:
		return Paid
	default:
		return Partial
	}
}

// PartsFor returns the parts recorded against targetID, in order.
func PartsFor(targetID string, parts []PaymentPart) []PaymentPart {
	var out []PaymentPart
	for _, p := range parts {
		if p.PaymentTargetID == targetID {
			out = append(out, p)
		}
	}
	return out
}
