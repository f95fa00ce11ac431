package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Metrics are the finalized statistics of one bucket. Ratios with a zero
// denominator are nil.
type Metrics struct {
	Entries                int      `json:"entries"`
	Exits                  int      `json:"exits"`
	AverageDailyPopulation *float64 `json:"averageDailyPopulation"`
	AverageLengthOfStay    *float64 `json:"averageLengthOfStay"`
	MedianLengthOfStay     *float64 `json:"medianLengthOfStay"`
}

// Reduce turns a bucket into metrics at full precision.
func Reduce(b *Bucket) Metrics {
	if b == nil {
		return Metrics{}
	}
	m := Metrics{Entries: b.Entries, Exits: b.Exits}
	if b.DaysInYear > 0 {
		m.AverageDailyPopulation = ptr(float64(b.TotalOverlapDays) / float64(b.DaysInYear))
	}
	if b.CountLOS > 0 {
		m.AverageLengthOfStay = ptr(float64(b.TotalLOS) / float64(b.CountLOS))
	}
	m.MedianLengthOfStay = Median(b.LengthOfStays)
	return m
}

// ReduceAll reduces every bucket of a group map.
func ReduceAll(buckets Buckets) map[string]Metrics {
	return lo.MapValues(buckets, func(b *Bucket, _ string) Metrics {
		return Reduce(b)
	})
}

// Display rounds ADP to one decimal and lengths of stay to two, the
// precision the charts show.
func (m Metrics) Display() Metrics {
	m.AverageDailyPopulation = RoundPtr(m.AverageDailyPopulation, 1)
	m.AverageLengthOfStay = RoundPtr(m.AverageLengthOfStay, 2)
	m.MedianLengthOfStay = RoundPtr(m.MedianLengthOfStay, 2)
	return m
}

// Median of values; even counts average the two middle values.
func Median(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]int{}, values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return ptr(float64(sorted[mid-1]+sorted[mid]) / 2)
	}
	return ptr(float64(sorted[mid]))
}

// Round rounds half away from zero at the given decimal places.
func Round(value float64, places int32) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return rounded
}

func RoundPtr(value *float64, places int32) *float64 {
	if value == nil {
		return nil
	}
	return ptr(Round(*value, places))
}

func ptr(value float64) *float64 {
	return &value
}

// Calculation selects which metric an analysis reports.
type Calculation string

const (
	CountAdmissions        Calculation = "countAdmissions"
	CountReleases          Calculation = "countReleases"
	AverageLengthOfStay    Calculation = "averageLengthOfStay"
	MedianLengthOfStay     Calculation = "medianLengthOfStay"
	AverageDailyPopulation Calculation = "averageDailyPopulation"
)

var Calculations = []Calculation{
	CountAdmissions,
	CountReleases,
	AverageLengthOfStay,
	MedianLengthOfStay,
	AverageDailyPopulation,
}

var ErrUnknownCalculation = errors.New("unknown calculation type")

func ParseCalculation(value string) (Calculation, error) {
	trimmed := strings.TrimSpace(value)
	for _, calc := range Calculations {
		if strings.EqualFold(string(calc), trimmed) {
			return calc, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCalculation, value)
}

// Value picks the metric named by calc.
func (m Metrics) Value(calc Calculation) *float64 {
	switch calc {
	case CountAdmissions:
		return ptr(float64(m.Entries))
	case CountReleases:
		return ptr(float64(m.Exits))
	case AverageLengthOfStay:
		return m.AverageLengthOfStay
	case MedianLengthOfStay:
		return m.MedianLengthOfStay
	case AverageDailyPopulation:
		return m.AverageDailyPopulation
	}
	return nil
}
