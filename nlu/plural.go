package nlu

// GetEnding picks the Slavic plural form of a counted noun:
// forms[0] for 1, 21, 31...; forms[1] for 2..4, 22..24...;
// forms[2] for 0, 5..20, 25..30 and every teen.
func GetEnding(n int, forms [3]string) string {

	if n < 0 {
		n = -n
	}

	// teens always take the "many" form
	if m := n % 100; m >= 11 && m <= 19 {
		return forms[2]
	}

	switch n % 10 {
	case 1:
		return forms[0]
	case 2, 3, 4:
		return forms[1]
	default: // 0, 5..9
		return forms[2]
	}
}
