package category

import (
	"testing"
	"time"
)

func TestRaceEthnicity(t *testing.T) {
	cases := []struct {
		race, ethnicity, want string
	}{
		{"White", "Non Hispanic", White},
		{"White", "HISPANIC", Hispanic},
		{"Black", "Hispanic", Hispanic},
		{"Black/African American", "", AfricanAmerican},
		{"african american", "Non Hispanic", AfricanAmerican},
		{"Asian or Pacific Islander", "", Asian},
		{"American Indian", "", Other},
		{"", "Non Hispanic", Other},
		{"", "", Unknown},
	}
	for _, tc := range cases {
		if got := RaceEthnicity(tc.race, tc.ethnicity); got != tc.want {
			t.Fatalf("RaceEthnicity(%q, %q) = %q, want %q", tc.race, tc.ethnicity, got, tc.want)
		}
	}
}

func TestRaceEthnicityIsStable(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := RaceEthnicity("White", "Non Hispanic"); got != White {
			t.Fatalf("call %d returned %q", i, got)
		}
	}
}

func TestRaceSimplified(t *testing.T) {
	if got := RaceSimplified("White", "Non Hispanic"); got != White {
		t.Fatalf("expected White, got %q", got)
	}
	if got := RaceSimplified("White", "Hispanic"); got != YouthOfColor {
		t.Fatalf("hispanic ethnicity should win, got %q", got)
	}
	if got := RaceSimplified("white", ""); got != YouthOfColor {
		t.Fatalf("race match is exact, got %q", got)
	}
	if got := RaceSimplified("", ""); got != YouthOfColor {
		t.Fatalf("expected Youth of Color for missing race, got %q", got)
	}
}

func TestAgeBrackets(t *testing.T) {
	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	age, ok := AgeAt(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), entry)
	if !ok || age != 14 {
		t.Fatalf("expected age 14, got %d (%v)", age, ok)
	}
	if got := AgeBracket(age, ok); got != AgeFourteenToSeventeen {
		t.Fatalf("expected 14-17, got %q", got)
	}

	age, _ = AgeAt(time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC), entry)
	if age != 13 {
		t.Fatalf("expected age 13 the day before the birthday, got %d", age)
	}

	cases := map[int]string{8: AgeTenAndYounger, 10: AgeTenAndYounger, 11: AgeElevenToThirteen, 13: AgeElevenToThirteen, 17: AgeFourteenToSeventeen, 18: AgeEighteenPlus, 21: AgeEighteenPlus}
	for age, want := range cases {
		if got := AgeBracket(age, true); got != want {
			t.Fatalf("AgeBracket(%d) = %q, want %q", age, got, want)
		}
	}
	if _, ok := AgeAt(time.Time{}, entry); ok {
		t.Fatalf("expected missing dob to be unknown")
	}
	if got := AgeBracket(0, false); got != Unknown {
		t.Fatalf("expected Unknown, got %q", got)
	}
	if got := AgeDetail(15, true); got != "15" {
		t.Fatalf("expected detail label 15, got %q", got)
	}
}

func TestSimplifiedOffense(t *testing.T) {
	cases := map[string]string{
		"Felony Person":             Felonies,
		"Other Felony":              Felonies,
		"misdemeanor property":      Misdemeanors,
		"Status Offense":            StatusOffense,
		"Warrant":                   Technicals,
		"Contempt of Court":         Technicals,
		"ATD Program Failure":       Technicals,
		"Unknown":                   Other,
		"":                          Other,
		"Something the state added": Other,
	}
	for offense, want := range cases {
		if got := SimplifiedOffense(offense); got != want {
			t.Fatalf("SimplifiedOffense(%q) = %q, want %q", offense, got, want)
		}
	}
}

func TestDispoClassifiesEveryValue(t *testing.T) {
	for _, reason := range []string{"", "   ", "Awaiting Placement", "Other reason"} {
		got := Dispo(reason)
		if got != PreDispo && got != PostDispo {
			t.Fatalf("Dispo(%q) = %q is not a dispo label", reason, got)
		}
	}
	if Dispo("") != PreDispo {
		t.Fatalf("empty reason should be pre-dispo")
	}
	if Dispo("Awaiting Placement") != PostDispo {
		t.Fatalf("non-empty reason should be post-dispo")
	}
}

func TestReasonForDetention(t *testing.T) {
	cases := []struct {
		reason, offense, want string
	}{
		{"Awaiting Placement", "Felony Person", "Awaiting Placement"},
		{"Other - see notes", "Warrant", Other},
		{"", "Felony Drugs", NewOffenses},
		{"", "Status Offense", NewOffenses},
		{"", "Probation Violation", Technicals},
		{"", "", Other},
	}
	for _, tc := range cases {
		if got := ReasonForDetention(tc.reason, tc.offense); got != tc.want {
			t.Fatalf("ReasonForDetention(%q, %q) = %q, want %q", tc.reason, tc.offense, got, tc.want)
		}
	}
}

func TestSimplifiedReferral(t *testing.T) {
	cases := map[string]string{
		"County Sheriff":         LawEnforcement,
		"City Police Department": LawEnforcement,
		"Juvenile Court":         Court,
		"Probation Officer":      LawEnforcement,
		"Magistrate":             Court,
		"High School":            School,
		"Parent":                 Other,
		"":                       Other,
	}
	for source, want := range cases {
		if got := SimplifiedReferral(source); got != want {
			t.Fatalf("SimplifiedReferral(%q) = %q, want %q", source, got, want)
		}
	}
}

func TestScreenedAndExitOutcome(t *testing.T) {
	if got := ScreenedStatus("Auto Hold"); got != AutoHold {
		t.Fatalf("expected Auto Hold, got %q", got)
	}
	if got := ScreenedStatus("maybe"); got != Unknown {
		t.Fatalf("expected Unknown, got %q", got)
	}
	if got := ExitOutcome("1"); got != Undisrupted {
		t.Fatalf("expected Undisrupted, got %q", got)
	}
	if got := ExitOutcome("0"); got != Disrupted {
		t.Fatalf("expected Disrupted, got %q", got)
	}
	if got := ExitOutcome(""); got != Unknown {
		t.Fatalf("expected Unknown, got %q", got)
	}
	got := Disruptions("1", "", "true", "0")
	if len(got) != 2 || got[0] != DisruptionFTA || got[1] != DisruptionTechnical {
		t.Fatalf("unexpected disruptions %v", got)
	}
}
