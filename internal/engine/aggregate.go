package engine

import (
	"fmt"
	"time"

	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/stay"
)

// Bucket accumulates one group's counters for one year window.
type Bucket struct {
	Entries          int
	Exits            int
	TotalLOS         int
	CountLOS         int
	LengthOfStays    []int
	TotalOverlapDays int
	DaysInYear       int
}

// Buckets maps group keys to their accumulated counters.
type Buckets map[string]*Bucket

func (b Buckets) bucket(key string, daysInYear int) *Bucket {
	existing, ok := b[key]
	if !ok {
		existing = &Bucket{DaysInYear: daysInYear}
		b[key] = existing
	}
	return existing
}

// TotalEntries sums entries across every group.
func (b Buckets) TotalEntries() int {
	total := 0
	for _, bucket := range b {
		total += bucket.Entries
	}
	return total
}

// Options controls how open stays are treated.
type Options struct {
	// IncludeUnreleased treats a stay without an exit as exiting on AsOf.
	IncludeUnreleased bool
	// AsOf is the dataset's declared end date.
	AsOf time.Time
}

// Pass describes one scan over the stays for a single year window.
type Pass struct {
	Window     calendar.Window
	Dimensions []Dimension
	// Split sub-divides every group of every dimension. Empty means no split
	// and every group has the single split key AllKey.
	Split   Dimension
	Options Options
}

// Table is the result for one dimension: group key, then split key.
type Table map[string]Buckets

// Split returns the buckets of one split key across all groups.
func (t Table) Split(key string) Buckets {
	out := Buckets{}
	for group, splits := range t {
		if bucket, ok := splits[key]; ok {
			out[group] = bucket
		}
	}
	return out
}

// contribution is what a single stay adds to a bucket in one window.
type contribution struct {
	entered  bool
	exited   bool
	overlap  int
	los      int
	countLOS bool
}

func (c contribution) empty() bool {
	return !c.entered && !c.exited && c.overlap == 0 && !c.countLOS
}

func contribute(s *stay.Stay, window calendar.Window, opts Options) contribution {
	var c contribution
	if !s.HasEntry() {
		return c
	}
	interval := s.Interval()
	substituted := false
	if interval.Open() && opts.IncludeUnreleased && !opts.AsOf.IsZero() {
		interval.Exit = calendar.DateOnly(opts.AsOf)
		substituted = true
	}
	exit := interval.Exit

	c.entered = window.Contains(s.Entry)
	if !exit.IsZero() {
		c.overlap = calendar.OverlapDays(interval, window)
	}
	if !exit.IsZero() && window.Contains(exit) {
		c.exited = !substituted
		if !exit.Before(s.Entry) {
			c.los = calendar.DaysBetween(s.Entry, exit) + 1
			c.countLOS = true
		}
	}
	return c
}

func (b *Bucket) add(c contribution) {
	if c.entered {
		b.Entries++
	}
	if c.exited {
		b.Exits++
	}
	b.TotalOverlapDays += c.overlap
	if c.countLOS {
		b.TotalLOS += c.los
		b.CountLOS++
		b.LengthOfStays = append(b.LengthOfStays, c.los)
	}
}

// Aggregate scans stays once and fills a Table per requested dimension.
// Stays that touch neither the window's entries, exits nor days are not
// counted, so groups only appear when they hold data for the year.
func Aggregate(stays []stay.Stay, pass Pass) (map[Dimension]Table, error) {
	split := pass.Split
	if split == "" {
		split = All
	}
	if _, ok := labelers[split]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, split)
	}
	tables := make(map[Dimension]Table, len(pass.Dimensions))
	for _, dim := range pass.Dimensions {
		if _, ok := labelers[dim]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, dim)
		}
		tables[dim] = Table{}
	}

	days := pass.Window.DaysInYear
	for i := range stays {
		s := &stays[i]
		c := contribute(s, pass.Window, pass.Options)
		if c.empty() {
			continue
		}
		splitKey := labelers[split](s)
		for dim, table := range tables {
			key := labelers[dim](s)
			groups, ok := table[key]
			if !ok {
				groups = Buckets{}
				table[key] = groups
			}
			groups.bucket(splitKey, days).add(c)
		}
	}
	return tables, nil
}

// AggregateBy groups stays by a single dimension for one window.
func AggregateBy(stays []stay.Stay, window calendar.Window, dim Dimension, opts Options) (Buckets, error) {
	tables, err := Aggregate(stays, Pass{Window: window, Dimensions: []Dimension{dim}, Options: opts})
	if err != nil {
		return nil, err
	}
	return tables[dim].Split(AllKey), nil
}
