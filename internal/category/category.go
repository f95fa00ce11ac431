// Package category maps raw stay record fields onto the closed label sets
// used by every breakdown. All functions are pure and total: empty or
// unrecognized input lands in an Unknown or Other label.
package category

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	Unknown = "Unknown"
	Other   = "Other"

	Hispanic        = "Hispanic"
	White           = "White"
	AfricanAmerican = "African American or Black"
	Asian           = "Asian"
	YouthOfColor    = "Youth of Color"

	AgeTenAndYounger       = "10 and younger"
	AgeElevenToThirteen    = "11-13"
	AgeFourteenToSeventeen = "14-17"
	AgeEighteenPlus        = "18+"

	Felonies      = "Felonies"
	Misdemeanors  = "Misdemeanors"
	StatusOffense = "Status Offense"
	Technicals    = "Technicals"
	NewOffenses   = "New Offenses"

	PreDispo  = "Pre-dispo"
	PostDispo = "Post-dispo"

	LawEnforcement = "Law Enforcement"
	Court          = "Court"
	School         = "School"

	Screened    = "Screened"
	NotScreened = "Not Screened"
	AutoHold    = "Auto Hold"

	Undisrupted = "Undisrupted"
	Disrupted   = "Disrupted"

	DisruptionFTA        = "FTA"
	DisruptionNewOffense = "New Offense"
	DisruptionTechnical  = "Technical"
	DisruptionOther      = "Other"
)

var (
	SimplifiedOffenseLabels = []string{Technicals, Misdemeanors, Felonies, Other}
	ReasonLabels            = []string{NewOffenses, Technicals, Other}
	DispoLabels             = []string{PreDispo, PostDispo}
	ScreenedLabels          = []string{Screened, NotScreened, AutoHold}
	DisruptionLabels        = []string{DisruptionFTA, DisruptionNewOffense, DisruptionTechnical, DisruptionOther}
)

// technicalViolations are offense categories that describe a violation of
// supervision terms rather than a new charge.
var technicalViolations = []string{
	"Court Order",
	"Warrant",
	"Probation Violation",
	"ATD Program Failure",
	"Other Technical Violation",
	"Contempt of Court",
}

func containsAny(value string, needles ...string) bool {
	return lo.SomeBy(needles, func(needle string) bool {
		return strings.Contains(value, needle)
	})
}

func clean(value string) string {
	return strings.TrimSpace(value)
}

func isHispanic(ethnicity string) bool {
	return strings.EqualFold(clean(ethnicity), "hispanic")
}

// RaceEthnicity gives Hispanic ethnicity priority over race, then matches
// race text. A record with neither field filled in is Unknown.
func RaceEthnicity(race string, ethnicity string) string {
	if isHispanic(ethnicity) {
		return Hispanic
	}
	r := strings.ToLower(clean(race))
	switch {
	case r == "" && clean(ethnicity) == "":
		return Unknown
	case containsAny(r, "black", "african"):
		return AfricanAmerican
	case strings.Contains(r, "asian"):
		return Asian
	case strings.Contains(r, "white"):
		return White
	}
	return Other
}

// RaceSimplified splits youth into White and Youth of Color.
func RaceSimplified(race string, ethnicity string) string {
	if isHispanic(ethnicity) {
		return YouthOfColor
	}
	if clean(race) == White {
		return White
	}
	return YouthOfColor
}

// AgeAt returns completed years between dob and entry. ok is false when
// either date is missing or the birth date follows the entry date.
// Dividing days by 365.25 instead would make a youth born 2010-01-01 and
// admitted 2024-01-01 age 13, not 14.
func AgeAt(dob time.Time, entry time.Time) (int, bool) {
	if dob.IsZero() || entry.IsZero() || entry.Before(dob) {
		return 0, false
	}
	age := entry.Year() - dob.Year()
	anniversary := time.Date(entry.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, entry.Location())
	if entry.Before(anniversary) {
		age--
	}
	return age, true
}

func AgeBracket(age int, ok bool) string {
	if !ok {
		return Unknown
	}
	switch {
	case age <= 10:
		return AgeTenAndYounger
	case age <= 13:
		return AgeElevenToThirteen
	case age <= 17:
		return AgeFourteenToSeventeen
	}
	return AgeEighteenPlus
}

// AgeDetail is the exact age as a label, used for single-year breakdowns.
func AgeDetail(age int, ok bool) string {
	if !ok {
		return Unknown
	}
	return strconv.Itoa(age)
}

func isTechnical(offense string) bool {
	return lo.Contains(technicalViolations, clean(offense))
}

// SimplifiedOffense collapses offense categories into Felonies,
// Misdemeanors, Status Offense, Technicals or Other.
func SimplifiedOffense(offense string) string {
	o := strings.ToLower(clean(offense))
	switch {
	case o == "":
		return Other
	case strings.Contains(o, "felony"):
		return Felonies
	case strings.Contains(o, "misdemeanor"):
		return Misdemeanors
	case clean(offense) == StatusOffense:
		return StatusOffense
	case isTechnical(offense):
		return Technicals
	}
	return Other
}

// Dispo is the single pre/post-disposition rule: any post-dispo stay
// reason marks the stay as post-disposition.
func Dispo(postDispoStayReason string) string {
	if clean(postDispoStayReason) == "" {
		return PreDispo
	}
	return PostDispo
}

// ReasonForDetention prefers the post-dispo stay reason and otherwise
// splits the offense into New Offenses and Technicals.
func ReasonForDetention(postDispoStayReason string, offense string) string {
	if reason := clean(postDispoStayReason); reason != "" {
		if strings.Contains(strings.ToLower(reason), "other") {
			return Other
		}
		return reason
	}
	switch SimplifiedOffense(offense) {
	case Felonies, Misdemeanors, StatusOffense:
		return NewOffenses
	case Technicals:
		return Technicals
	}
	return Other
}

func SimplifiedReferral(source string) string {
	s := strings.ToLower(clean(source))
	switch {
	case s == "":
		return Other
	case containsAny(s, "police", "sheriff", "law enforcement", "officer", "deputy"):
		return LawEnforcement
	case containsAny(s, "court", "judge", "probation", "magistrate"):
		return Court
	case strings.Contains(s, "school"):
		return School
	}
	return Other
}

func ScreenedStatus(value string) string {
	v := clean(value)
	if lo.Contains(ScreenedLabels, v) {
		return v
	}
	return Unknown
}

// ExitOutcome reads the ATD successful exit flag.
func ExitOutcome(successfulExit string) string {
	switch strings.ToLower(clean(successfulExit)) {
	case "1", "true", "yes", "y":
		return Undisrupted
	case "0", "false", "no", "n":
		return Disrupted
	}
	return Unknown
}

// Disruptions lists the disruption types flagged on an ATD exit, in
// DisruptionLabels order.
func Disruptions(fta string, newOffense string, technical string, other string) []string {
	flags := []string{fta, newOffense, technical, other}
	var out []string
	for i, flag := range flags {
		if isFlagSet(flag) {
			out = append(out, DisruptionLabels[i])
		}
	}
	return out
}

func isFlagSet(value string) bool {
	switch strings.ToLower(clean(value)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// OrUnknown passes non-empty raw values through unchanged.
func OrUnknown(value string) string {
	if v := clean(value); v != "" {
		return v
	}
	return Unknown
}
