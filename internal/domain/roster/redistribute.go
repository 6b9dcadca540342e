package roster

import "math"

const eps = 1e-9

// CapResult is the outcome of a cap-and-redistribute pass.
type CapResult struct {
	Minutes    []float64
	Iterations int
	// Converged is false when the iteration cap was hit with overflow left,
	// or when the budget cannot fit under the cap.
	Converged bool
	// Feasible is false when len(minutes)*cap < total.
	Feasible bool
}

// RedistributeWithCap scales minutes to total and then repeatedly clips every
// value above capMinutes, handing the overflow to the athletes still under the
// cap in proportion to their current share. The loop stops when the overflow
// drops below tol or after maxIter rounds; the vector is then renormalized so
// it sums to total, provided the total fits under the cap at all.
//
// The input slice is not modified. Negative and NaN entries count as zero and
// an all-zero vector is spread evenly.
func RedistributeWithCap(minutes []float64, capMinutes, total float64, maxIter int, tol float64) CapResult {
	n := len(minutes)
	m := make([]float64, n)
	if n == 0 {
		return CapResult{Minutes: m, Converged: true, Feasible: total <= 0}
	}

	for i, v := range minutes {
		if v > 0 && !math.IsInf(v, 0) {
			m[i] = v
		}
	}
	if sum(m) < eps {
		for i := range m {
			m[i] = 1
		}
	}
	scale(m, total)

	res := CapResult{Feasible: float64(n)*capMinutes >= total-tol}

	for res.Iterations < maxIter {
		overflow := 0.0
		for _, v := range m {
			if v > capMinutes {
				overflow += v - capMinutes
			}
		}
		if overflow < tol {
			res.Converged = true
			break
		}

		under := make([]int, 0, n)
		for i, v := range m {
			if v > capMinutes {
				m[i] = capMinutes
			}
			if m[i] < capMinutes-eps {
				under = append(under, i)
			}
		}
		res.Iterations++
		if len(under) == 0 {
			break
		}

		weight := 0.0
		for _, i := range under {
			weight += m[i]
		}
		for _, i := range under {
			if weight < eps {
				m[i] += overflow / float64(len(under))
				continue
			}
			m[i] += overflow * m[i] / weight
		}
	}

	if res.Feasible {
		scale(m, total)
	} else {
		res.Converged = false
	}
	res.Minutes = m
	return res
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

// scale multiplies v in place so it sums to total.
func scale(v []float64, total float64) {
	s := sum(v)
	if s < eps {
		return
	}
	f := total / s
	for i := range v {
		v[i] *= f
	}
}
