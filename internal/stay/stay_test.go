package stay

import (
	"testing"
	"time"

	"detention-stay-report/internal/category"
)

func TestEnrichSecureDetention(t *testing.T) {
	record := Record{
		AdmissionDate:   "2024-01-01",
		ReleaseDate:     "2024-01-10",
		ATDEntryDate:    "2023-05-05",
		DateOfBirth:     "2010-01-01",
		Race:            "White",
		Ethnicity:       "Non Hispanic",
		OffenseCategory: "Felony Person",
		ReferralSource:  "Sheriff's Office",
		ScreenedStatus:  "Screened",
	}
	s := Enrich(&record, SecureDetention)
	if !s.Entry.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected entry %v", s.Entry)
	}
	if !s.Exit.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected exit %v", s.Exit)
	}
	if s.AgeBracket != category.AgeFourteenToSeventeen {
		t.Fatalf("expected 14-17, got %q", s.AgeBracket)
	}
	if s.RaceEthnicity != category.White || s.RaceSimplified != category.White {
		t.Fatalf("unexpected race labels %q/%q", s.RaceEthnicity, s.RaceSimplified)
	}
	if s.SimplifiedOffense != category.Felonies || s.Reason != category.NewOffenses {
		t.Fatalf("unexpected offense labels %q/%q", s.SimplifiedOffense, s.Reason)
	}
	if s.Dispo != category.PreDispo {
		t.Fatalf("expected pre-dispo, got %q", s.Dispo)
	}
	if s.SimplifiedReferral != category.LawEnforcement {
		t.Fatalf("expected law enforcement, got %q", s.SimplifiedReferral)
	}
	if !s.Valid() || !s.Released() {
		t.Fatalf("expected a valid released stay")
	}
}

func TestEnrichATDUsesATDColumns(t *testing.T) {
	record := Record{
		AdmissionDate:     "2024-01-01",
		ATDEntryDate:      "2023-05-05",
		ATDExitDate:       "bad date",
		ATDSuccessfulExit: "0",
		ATDExitFTA:        "1",
	}
	s := Enrich(&record, AlternativeToDetention)
	if s.Entry.Year() != 2023 {
		t.Fatalf("expected ATD entry date, got %v", s.Entry)
	}
	if s.Released() {
		t.Fatalf("unparseable exit should be treated as missing")
	}
	if s.ExitOutcome != category.Disrupted || len(s.Disruptions) != 1 {
		t.Fatalf("unexpected exit outcome %q %v", s.ExitOutcome, s.Disruptions)
	}
}

func TestInvertedStayIsInvalid(t *testing.T) {
	record := Record{AdmissionDate: "2024-02-01", ReleaseDate: "2024-01-15"}
	if Enrich(&record, SecureDetention).Valid() {
		t.Fatalf("expected exit before entry to be invalid")
	}
}

func TestFromRowAndDetentionType(t *testing.T) {
	record := FromRow(map[string]string{
		ColAdmissionDate:       " 2024-03-01 ",
		ColPostDispoStayReason: "Awaiting Placement",
		ColScreened:            "Auto Hold",
		ColATDProgramName:      "Electronic Monitoring",
	})
	if record.AdmissionDate != "2024-03-01" || record.PostDispoStayReason != "Awaiting Placement" || record.ScreenedStatus != "Auto Hold" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ATDProgramName != "Electronic Monitoring" {
		t.Fatalf("unexpected record %+v", record)
	}
	if dt, err := ParseDetentionType("ATD"); err != nil || dt != AlternativeToDetention {
		t.Fatalf("expected ATD alias, got %q %v", dt, err)
	}
	if _, err := ParseDetentionType("jail"); err == nil {
		t.Fatalf("expected invalid detention type error")
	}
}

func TestDateColumns(t *testing.T) {
	entry, exit := DateColumns(AlternativeToDetention)
	if entry != ColATDEntryDate || exit != ColATDExitDate {
		t.Fatalf("unexpected ATD columns %s/%s", entry, exit)
	}
	entry, exit = DateColumns(SecureDetention)
	if entry != ColAdmissionDate || exit != ColReleaseDate {
		t.Fatalf("unexpected secure columns %s/%s", entry, exit)
	}
}
