package simulation

var fibonacci = [...]int{1, 1, 2, 3, 5, 8, 13, 21, 34, 55}

const baseAlertHz = 220.0

// AlertFrequency is the tone, in Hz, the alert collaborator plays for an
// attack streak step. Steps cycle through the first ten Fibonacci numbers.
func AlertFrequency(step int) float64 {
	if step < 1 {
		step = 1
	}
	return baseAlertHz * float64(fibonacci[(step-1)%len(fibonacci)]) / 2
}
