package triage

// Classify recommends PCR for a positive RAT, overseas travel, contact with
// a confirmed case, any severe symptom, more than two moderate symptoms or
// exactly four mild symptoms, and RAT otherwise.
func Classify(a Assessment) TestType {
	if a.RATPositive ||
		a.OverseasTravel ||
		a.ContactLevel == 1 ||
		a.SevereCount > 0 ||
		a.ModerateCount > 2 ||
		a.MildCount == 4 {
		return TestPCR
	}
	return TestRAT
}

// Article returns the indefinite article used before the test type in
// recommendations, "a PCR" but "an RAT".
func (t TestType) Article() string {
	if t == TestRAT {
		return "an"
	}
	return "a"
}
