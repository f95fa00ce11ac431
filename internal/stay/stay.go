// Package stay holds the raw stay record schema shared with the upstream
// loader and the enrichment step that resolves the detention type's date
// pair and derives every category label once per record.
package stay

import (
	"fmt"
	"strings"
	"time"

	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/category"
)

// Column names of the upstream export.
const (
	ColAdmissionDate         = "Admission_Date"
	ColReleaseDate           = "Release_Date"
	ColATDEntryDate          = "ATD_Entry_Date"
	ColATDExitDate           = "ATD_Exit_Date"
	ColATDProgramName        = "ATD_Program_Name"
	ColDateOfBirth           = "Date_of_Birth"
	ColGender                = "Gender"
	ColRace                  = "Race"
	ColEthnicity             = "Ethnicity"
	ColOffenseCategory       = "OffenseCategory"
	ColPostDispoStayReason   = "Post-Dispo Stay Reason"
	ColPostAdjudicatedStatus = "Post_Adjudicated_Status"
	ColFacility              = "Facility"
	ColReferralSource        = "Referral_Source"
	ColScreened              = "Screened/not screened"
	ColATDSuccessfulExit     = "ATD_Successful_Exit"
	ColExitTo                = "Exit_To"
	ColATDExitFTA            = "ATD_Exit_FTA"
	ColATDExitNewOffense     = "ATD_Exit_New_Offense"
	ColATDExitTechnical      = "ATD_Exit_Technical"
	ColATDExitOther          = "ATD_Exit_Other"
)

// Columns lists every column the loader looks for, in export order.
var Columns = []string{
	ColAdmissionDate, ColReleaseDate, ColATDEntryDate, ColATDExitDate,
	ColATDProgramName, ColDateOfBirth, ColGender, ColRace, ColEthnicity, ColOffenseCategory,
	ColPostDispoStayReason, ColPostAdjudicatedStatus, ColFacility,
	ColReferralSource, ColScreened, ColATDSuccessfulExit, ColExitTo,
	ColATDExitFTA, ColATDExitNewOffense, ColATDExitTechnical, ColATDExitOther,
}

// Record is one person-stay exactly as exported. Values are raw strings.
type Record struct {
	AdmissionDate         string `json:"Admission_Date,omitempty"`
	ReleaseDate           string `json:"Release_Date,omitempty"`
	ATDEntryDate          string `json:"ATD_Entry_Date,omitempty"`
	ATDExitDate           string `json:"ATD_Exit_Date,omitempty"`
	ATDProgramName        string `json:"ATD_Program_Name,omitempty"`
	DateOfBirth           string `json:"Date_of_Birth,omitempty"`
	Gender                string `json:"Gender,omitempty"`
	Race                  string `json:"Race,omitempty"`
	Ethnicity             string `json:"Ethnicity,omitempty"`
	OffenseCategory       string `json:"OffenseCategory,omitempty"`
	PostDispoStayReason   string `json:"Post-Dispo Stay Reason,omitempty"`
	PostAdjudicatedStatus string `json:"Post_Adjudicated_Status,omitempty"`
	Facility              string `json:"Facility,omitempty"`
	ReferralSource        string `json:"Referral_Source,omitempty"`
	ScreenedStatus        string `json:"Screened/not screened,omitempty"`
	ATDSuccessfulExit     string `json:"ATD_Successful_Exit,omitempty"`
	ExitTo                string `json:"Exit_To,omitempty"`
	ATDExitFTA            string `json:"ATD_Exit_FTA,omitempty"`
	ATDExitNewOffense     string `json:"ATD_Exit_New_Offense,omitempty"`
	ATDExitTechnical      string `json:"ATD_Exit_Technical,omitempty"`
	ATDExitOther          string `json:"ATD_Exit_Other,omitempty"`
}

// FromRow builds a Record from a column-name keyed row. Missing columns
// stay empty.
func FromRow(row map[string]string) Record {
	get := func(col string) string {
		return strings.TrimSpace(row[col])
	}
	return Record{
		AdmissionDate:         get(ColAdmissionDate),
		ReleaseDate:           get(ColReleaseDate),
		ATDEntryDate:          get(ColATDEntryDate),
		ATDExitDate:           get(ColATDExitDate),
		ATDProgramName:        get(ColATDProgramName),
		DateOfBirth:           get(ColDateOfBirth),
		Gender:                get(ColGender),
		Race:                  get(ColRace),
		Ethnicity:             get(ColEthnicity),
		OffenseCategory:       get(ColOffenseCategory),
		PostDispoStayReason:   get(ColPostDispoStayReason),
		PostAdjudicatedStatus: get(ColPostAdjudicatedStatus),
		Facility:              get(ColFacility),
		ReferralSource:        get(ColReferralSource),
		ScreenedStatus:        get(ColScreened),
		ATDSuccessfulExit:     get(ColATDSuccessfulExit),
		ExitTo:                get(ColExitTo),
		ATDExitFTA:            get(ColATDExitFTA),
		ATDExitNewOffense:     get(ColATDExitNewOffense),
		ATDExitTechnical:      get(ColATDExitTechnical),
		ATDExitOther:          get(ColATDExitOther),
	}
}

// DetentionType selects which date pair of a record is authoritative.
type DetentionType string

const (
	SecureDetention        DetentionType = "secure-detention"
	AlternativeToDetention DetentionType = "alternative-to-detention"
)

func ParseDetentionType(value string) (DetentionType, error) {
	switch DetentionType(strings.ToLower(strings.TrimSpace(value))) {
	case SecureDetention, "":
		return SecureDetention, nil
	case AlternativeToDetention, "atd":
		return AlternativeToDetention, nil
	}
	return "", fmt.Errorf("invalid detention type: %s", value)
}

// Dates returns the raw entry and exit strings for the detention type.
func (r Record) Dates(detentionType DetentionType) (string, string) {
	if detentionType == AlternativeToDetention {
		return r.ATDEntryDate, r.ATDExitDate
	}
	return r.AdmissionDate, r.ReleaseDate
}

// DateColumns returns the entry and exit column names for the detention
// type.
func DateColumns(detentionType DetentionType) (string, string) {
	if detentionType == AlternativeToDetention {
		return ColATDEntryDate, ColATDExitDate
	}
	return ColAdmissionDate, ColReleaseDate
}

// Stay is a Record with its date pair resolved and categories derived.
// It lives for the duration of one analysis call.
type Stay struct {
	Record *Record

	Entry       time.Time
	Exit        time.Time
	DateOfBirth time.Time
	Age         int
	AgeKnown    bool

	RaceEthnicity      string
	RaceSimplified     string
	AgeBracket         string
	AgeDetail          string
	SimplifiedOffense  string
	Reason             string
	Dispo              string
	SimplifiedReferral string
	Screened           string
	ExitOutcome        string
	Disruptions        []string
}

// HasEntry reports whether the stay has a usable entry date.
func (s Stay) HasEntry() bool {
	return !s.Entry.IsZero()
}

// Released reports whether the stay has an exit date.
func (s Stay) Released() bool {
	return !s.Exit.IsZero()
}

// Valid reports whether the exit, when present, does not precede the entry.
func (s Stay) Valid() bool {
	return !s.Released() || !s.Exit.Before(s.Entry)
}

// Interval returns the stay interval as recorded.
func (s Stay) Interval() calendar.Interval {
	return calendar.Interval{Entry: s.Entry, Exit: s.Exit}
}

// Enrich resolves the record's dates for detentionType and computes every
// derived label. Unparseable dates are treated as missing.
func Enrich(record *Record, detentionType DetentionType) Stay {
	entryRaw, exitRaw := record.Dates(detentionType)
	s := Stay{
		Record:      record,
		Entry:       calendar.ParseOptionalDate(entryRaw),
		Exit:        calendar.ParseOptionalDate(exitRaw),
		DateOfBirth: calendar.ParseOptionalDate(record.DateOfBirth),
	}
	s.Age, s.AgeKnown = category.AgeAt(s.DateOfBirth, s.Entry)

	s.RaceEthnicity = category.RaceEthnicity(record.Race, record.Ethnicity)
	s.RaceSimplified = category.RaceSimplified(record.Race, record.Ethnicity)
	s.AgeBracket = category.AgeBracket(s.Age, s.AgeKnown)
	s.AgeDetail = category.AgeDetail(s.Age, s.AgeKnown)
	s.SimplifiedOffense = category.SimplifiedOffense(record.OffenseCategory)
	s.Reason = category.ReasonForDetention(record.PostDispoStayReason, record.OffenseCategory)
	s.Dispo = category.Dispo(record.PostDispoStayReason)
	s.SimplifiedReferral = category.SimplifiedReferral(record.ReferralSource)
	s.Screened = category.ScreenedStatus(record.ScreenedStatus)
	s.ExitOutcome = category.ExitOutcome(record.ATDSuccessfulExit)
	s.Disruptions = category.Disruptions(record.ATDExitFTA, record.ATDExitNewOffense, record.ATDExitTechnical, record.ATDExitOther)
	return s
}

// EnrichAll enriches every record in order.
func EnrichAll(records []Record, detentionType DetentionType) []Stay {
	out := make([]Stay, len(records))
	for i := range records {
		out[i] = Enrich(&records[i], detentionType)
	}
	return out
}
