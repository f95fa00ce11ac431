package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"detention-stay-report/internal/category"
	"detention-stay-report/internal/stay"
)

// Dimension names a grouping of stays.
type Dimension string

const (
	All                      Dimension = "All"
	Gender                   Dimension = "Gender"
	Race                     Dimension = "Race"
	Ethnicity                Dimension = "Ethnicity"
	RaceEthnicity            Dimension = "RaceEthnicity"
	RaceSimplified           Dimension = "RaceSimplified"
	AgeBracket               Dimension = "AgeBracket"
	AgeDetail                Dimension = "AgeDetail"
	OffenseCategory          Dimension = "OffenseCategory"
	OffenseOverall           Dimension = "OffenseOverall"
	SimplifiedOffense        Dimension = "SimplifiedOffense"
	Facility                 Dimension = "Facility"
	ReferralSource           Dimension = "ReferralSource"
	SimplifiedReferralSource Dimension = "SimplifiedReferralSource"
	ScreenedStatus           Dimension = "ScreenedStatus"
	PreDispoFilter           Dimension = "PreDispoFilter"
	PostAdjudicatedStatus    Dimension = "PostAdjudicatedStatus"
	ExitOutcome              Dimension = "ExitOutcome"
	ExitTo                   Dimension = "ExitTo"
	ProgramType              Dimension = "ProgramType"
)

// AllKey is the single group key produced by the All dimension.
const AllKey = "All"

var ErrUnknownDimension = errors.New("unknown grouping dimension")

type labeler func(s *stay.Stay) string

var labelers = map[Dimension]labeler{
	All:                      func(*stay.Stay) string { return AllKey },
	Gender:                   func(s *stay.Stay) string { return category.OrUnknown(s.Record.Gender) },
	Race:                     func(s *stay.Stay) string { return category.OrUnknown(s.Record.Race) },
	Ethnicity:                func(s *stay.Stay) string { return category.OrUnknown(s.Record.Ethnicity) },
	RaceEthnicity:            func(s *stay.Stay) string { return s.RaceEthnicity },
	RaceSimplified:           func(s *stay.Stay) string { return s.RaceSimplified },
	AgeBracket:               func(s *stay.Stay) string { return s.AgeBracket },
	AgeDetail:                func(s *stay.Stay) string { return s.AgeDetail },
	OffenseCategory:          func(s *stay.Stay) string { return category.OrUnknown(s.Record.OffenseCategory) },
	OffenseOverall:           func(s *stay.Stay) string { return s.Reason },
	SimplifiedOffense:        func(s *stay.Stay) string { return s.SimplifiedOffense },
	Facility:                 func(s *stay.Stay) string { return category.OrUnknown(s.Record.Facility) },
	ReferralSource:           func(s *stay.Stay) string { return category.OrUnknown(s.Record.ReferralSource) },
	SimplifiedReferralSource: func(s *stay.Stay) string { return s.SimplifiedReferral },
	ScreenedStatus:           func(s *stay.Stay) string { return s.Screened },
	PreDispoFilter:           func(s *stay.Stay) string { return s.Dispo },
	PostAdjudicatedStatus:    func(s *stay.Stay) string { return category.OrUnknown(s.Record.PostAdjudicatedStatus) },
	ExitOutcome:              func(s *stay.Stay) string { return s.ExitOutcome },
	ExitTo:                   func(s *stay.Stay) string { return category.OrUnknown(s.Record.ExitTo) },
	ProgramType:              func(s *stay.Stay) string { return category.OrUnknown(s.Record.ATDProgramName) },
}

// aliases are the names older dashboard pages pass for a dimension.
var aliases = map[string]Dimension{
	"":                        All,
	"none":                    All,
	"null":                    All,
	"age":                     AgeBracket,
	"age at intake":           AgeBracket,
	"referral_source":         ReferralSource,
	"jurisdiction":            ReferralSource,
	"reasonfordetention":      OffenseOverall,
	"reason for detention":    OffenseOverall,
	"race/ethnicity":          RaceEthnicity,
	"yoc/white":               RaceSimplified,
	"offense category":        SimplifiedOffense,
	"pre/post-dispo filter":   PreDispoFilter,
	"screened/not screened":   ScreenedStatus,
	"post_adjudicated_status": PostAdjudicatedStatus,
	"atd_successful_exit":     ExitOutcome,
	"exit to":                 ExitTo,
	"exit_to":                 ExitTo,
	"program type":            ProgramType,
	"atd_program_name":        ProgramType,
	"atd_program_type":        ProgramType,
}

// ParseDimension resolves a dimension name or alias, case-insensitively.
func ParseDimension(name string) (Dimension, error) {
	trimmed := strings.TrimSpace(name)
	if _, ok := labelers[Dimension(trimmed)]; ok {
		return Dimension(trimmed), nil
	}
	lower := strings.ToLower(trimmed)
	if dim, ok := aliases[lower]; ok {
		return dim, nil
	}
	for dim := range labelers {
		if strings.ToLower(string(dim)) == lower {
			return dim, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownDimension, name)
}

// Dimensions lists every registered dimension, sorted by name.
func Dimensions() []Dimension {
	dims := lo.Keys(labelers)
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

// Label returns the group key of s under dim. Unregistered dimensions
// report ok=false.
func Label(dim Dimension, s *stay.Stay) (string, bool) {
	fn, ok := labelers[dim]
	if !ok {
		return "", false
	}
	return fn(s), true
}
