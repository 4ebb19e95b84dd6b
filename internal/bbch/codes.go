// Package bbch maps the continuous development stage onto BBCH growth-stage
// codes: a per-crop classifier, the ordered stage catalog with neighbour
// queries, and a tracker that keeps the displayed code from regressing.
package bbch

import (
	"strconv"
	"strings"
)

// CompareCodes orders two stage codes: numerically when both parse as
// integers ("9" < "10"), lexically otherwise. It returns -1, 0 or +1.
func CompareCodes(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// codeValue parses a code as an integer.
func codeValue(code string) (int, bool) {
	n, err := strconv.Atoi(code)
	return n, err == nil
}
