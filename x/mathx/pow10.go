package mathx

// Pow10 for small non-negative exponents; firmware never needs more than 10^5.
func Pow10(l int) int {
	d := 1
	for ; l > 0; l-- {
		d *= 10
	}
	return d
}

// IncPow10 increases v by one unit at the given level: level 0 adds 1, level l
// rounds up to the next multiple of 10^l. A value already on a multiple moves
// a full step.
func IncPow10(v, level int) int {
	if level <= 0 {
		return v + 1
	}
	d := Pow10(level)
	return ((v / d) + 1) * d
}

// DecPow10 decreases v by one unit at the given level: level 0 subtracts 1,
// level l rounds down to the previous multiple of 10^l. Values just under a
// multiple do not jump two steps.
func DecPow10(v, level int) int {
	if level <= 0 {
		return v - 1
	}
	d := Pow10(level)
	return (((v + 9*Pow10(level-1)) / d) - 1) * d
}
