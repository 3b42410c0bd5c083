// Package analytics reduces raw rows into dashboard summaries. Reducers are
// pure functions; Service fetches the rows.
package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// CountBy counts items per key.
func CountBy[T any](items []T, key func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[key(it)]++
	}
	return counts
}

// Ratio returns part/whole, or 0 when whole is 0.
func Ratio(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MonthBucket aggregates one calendar month.
type MonthBucket struct {
	Month   string  `json:"month"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// Dated is a point on the monthly timeline.
type Dated struct {
	At     time.Time
	Amount float64
}

// MonthlyBuckets buckets points into the trailing months calendar months
// ending with the month of now, oldest first. Points outside the window are
// ignored.
func MonthlyBuckets(points []Dated, now time.Time, months int) []MonthBucket {
	if months <= 0 {
		return []MonthBucket{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	buckets := make([]MonthBucket, months)
	index := make(map[string]int, months)
	for i := range buckets {
		key := first.AddDate(0, i, 0).Format("2006-01")
		buckets[i].Month = key
		index[key] = i
	}
	for _, p := range points {
		i, ok := index[p.At.In(now.Location()).Format("2006-01")]
		if !ok {
			continue
		}
		buckets[i].Count++
		buckets[i].Revenue = Round2(buckets[i].Revenue + p.Amount)
	}
	return buckets
}

// RevenueSummary totals a set of amounts.
type RevenueSummary struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Revenue sums amounts and averages them, guarding the empty set.
func Revenue(amounts []float64) RevenueSummary {
	var total float64
	for _, a := range amounts {
		total += a
	}
	return RevenueSummary{
		Total:   Round2(total),
		Average: Round2(Ratio(total, float64(len(amounts)))),
		Count:   len(amounts),
	}
}

// Ranked is one entry of a top-N ranking.
type Ranked struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// TopN sums value per key and returns the n largest, ties broken by key.
func TopN[T any](items []T, n int, key func(T) string, value func(T) float64) []Ranked {
	byKey := make(map[string]*Ranked)
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		r, ok := byKey[k]
		if !ok {
			r = &Ranked{ID: k}
			byKey[k] = r
		}
		r.Value = Round2(r.Value + value(it))
		r.Count++
	}
	ranked := make([]Ranked, 0, len(byKey))
	for _, r := range byKey {
		ranked = append(ranked, *r)
	}
	slices.SortFunc(ranked, func(a, b Ranked) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RatingSummary describes a set of 1..5 ratings.
type RatingSummary struct {
	Count        int         `json:"count"`
	Average      float64     `json:"average"`
	Satisfaction float64     `json:"satisfactionPercent"`
	Distribution map[int]int `json:"distribution"`
}

// Ratings averages ratings and computes the share of ratings of 4 or more as a percentage.
func Ratings(ratings []int) RatingSummary {
	s := RatingSummary{Count: len(ratings), Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum, satisfied int
	for _, r := range ratings {
		sum += r
		if r >= 4 {
			satisfied++
		}
		s.Distribution[r]++
	}
	s.Average = Round2(Ratio(float64(sum), float64(len(ratings))))
	s.Satisfaction = Round2(Ratio(float64(satisfied), float64(len(ratings))) * 100)
	return s
}
