// Package billing holds the bill-split arithmetic. Pure integer math on
// yen amounts; the sum of all payments always equals the total exactly.
package billing

// SplitResult is the outcome of dividing a bill across a party.
type SplitResult struct {
	PerPerson       int64 `json:"per_person"`
	FirstPersonPays int64 `json:"first_person_pays"`
	Remainder       int64 `json:"remainder"`
}

// Split divides totalAmount across numberOfSplits people. The first payer
// absorbs the remainder so no yen is lost to rounding:
// firstPersonPays + (n-1)*perPerson == totalAmount.
func Split(totalAmount int64, numberOfSplits int) SplitResult {
	if numberOfSplits <= 1 {
		return SplitResult{
			PerPerson:       totalAmount,
			FirstPersonPays: totalAmount,
			Remainder:       0,
		}
	}

	perPerson := totalAmount / int64(numberOfSplits)
	remainder := totalAmount - perPerson*int64(numberOfSplits)
	return SplitResult{
		PerPerson:       perPerson,
		FirstPersonPays: perPerson + remainder,
		Remainder:       remainder,
	}
}
