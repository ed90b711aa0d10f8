package personality

import "personaquiz/internal/model"

// ClassifyDISC returns the key with the highest score. Ties resolve to the
// first key in D, I, S, C order.
func ClassifyDISC(scores map[string]int) string {
	best := DISCKeys[0]
	for _, k := range DISCKeys[1:] {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best
}

// ClassifyMBTI builds the 4-letter code by comparing the magnitude of each
// opposing pair. Ties go to I, S, F and J. All-zero input yields ISFJ.
func ClassifyMBTI(scores map[string]int) string {
	allZero := true
	for _, k := range MBTIKeys {
		if scores[k] != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return DefaultMBTICode
	}

	e, i := abs(scores["E"]), abs(scores["I"])
	s, n := abs(scores["S"]), abs(scores["N"])
	t, f := abs(scores["T"]), abs(scores["F"])
	j, p := abs(scores["J"]), abs(scores["P"])

	code := make([]byte, 0, 4)
	code = append(code, pick(e > i, 'E', 'I'))
	code = append(code, pick(n > s, 'N', 'S'))
	code = append(code, pick(t > f, 'T', 'F'))
	code = append(code, pick(p > j, 'P', 'J'))
	return string(code)
}

// Classify dispatches on the standard. Only the keys the standard tracks are
// returned in the score map.
func Classify(std model.Standard, scores map[string]int) (string, map[string]int) {
	keys := Keys(std)
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = scores[k]
	}
	if std == model.StandardDISC {
		return ClassifyDISC(out), out
	}
	return ClassifyMBTI(out), out
}

func pick(cond bool, yes, no byte) byte {
	if cond {
		return yes
	}
	return no
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
