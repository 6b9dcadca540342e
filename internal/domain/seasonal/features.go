package seasonal

import (
	"math"
	"sort"
)

// Bucket is the composite a statistic contributes to.
type Bucket int

// Buckets.
const (
	BucketNone Bucket = iota
	BucketAttack
	BucketDefense
	BucketNegative
)

var buckets = map[string]Bucket{
	"G_per_game":       BucketAttack,
	"A_per_game":       BucketAttack,
	"S_per_game":       BucketAttack,
	"SOT_per_game":     BucketAttack,
	"KP_per_game":      BucketAttack,
	"Goals":            BucketAttack,
	"Assists":          BucketAttack,
	"Shots":            BucketAttack,
	"ShotsOnTarget":    BucketAttack,
	"KeyPasses":        BucketAttack,
	"GoalInvolvements": BucketAttack,
	"PassPct":          BucketAttack,
	"FoulsSuffered_pg": BucketAttack,

	"Tackles_pg":        BucketDefense,
	"Tackles":           BucketDefense,
	"SavePct":           BucketDefense,
	"GAA":               BucketDefense,
	"FoulsCommitted_pg": BucketDefense,
	"FoulsCommitted":    BucketDefense,

	"YellowCards_pg": BucketNegative,
	"RedCards_pg":    BucketNegative,
	"Offsides_pg":    BucketNegative,
	"YellowCards":    BucketNegative,
	"RedCards":       BucketNegative,
	"Offsides":       BucketNegative,
}

// BucketOf returns the bucket a statistic feeds, or BucketNone.
func BucketOf(stat string) Bucket {
	return buckets[stat]
}

// Features lists every statistic that feeds a bucket, sorted.
func Features() []string {
	out := make([]string, 0, len(buckets))
	for k := range buckets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// perGame maps each derived rate to its counting statistic.
var perGame = [...][2]string{
	{"Tackles_pg", "Tackles"},
	{"FoulsCommitted_pg", "FoulsCommitted"},
	{"FoulsSuffered_pg", "FoulsSuffered"},
	{"Offsides_pg", "Offsides"},
	{"YellowCards_pg", "YellowCards"},
	{"RedCards_pg", "RedCards"},
}

// DerivePerGame returns a copy of stats with the per-game rates added.
// A rate is 0 when games is not positive or the counting statistic is
// missing.
func DerivePerGame(stats map[string]float64, games float64) map[string]float64 {
	out := make(map[string]float64, len(stats)+len(perGame))
	for k, v := range stats {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	for _, pg := range perGame {
		rate := 0.0
		if base, ok := out[pg[1]]; ok && games > 0 {
			rate = base / games
		}
		out[pg[0]] = rate
	}
	return out
}

// ZScores standardizes the present values with the sample standard
// deviation. Absent entries (ok == false) and every entry of a degenerate
// column get 0.
func ZScores(values []float64, present []bool) []float64 {
	z := make([]float64, len(values))
	n := 0
	mean := 0.0
	for i, v := range values {
		if present[i] {
			n++
			mean += v
		}
	}
	if n < 2 {
		return z
	}
	mean /= float64(n)
	ss := 0.0
	for i, v := range values {
		if present[i] {
			d := v - mean
			ss += d * d
		}
	}
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 || math.IsNaN(sd) {
		return z
	}
	for i, v := range values {
		if present[i] {
			z[i] = (v - mean) / sd
		}
	}
	return z
}

// PercentileRanks returns the average-tie rank of each value divided by the
// count, times 100, rounded to one decimal.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// ranks i+1..j+1 share their mean
		rank := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			out[idx[k]] = math.Round(rank/float64(n)*100*10) / 10
		}
		i = j + 1
	}
	return out
}
