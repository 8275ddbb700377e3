package address

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		want     Breakdown
		wantPart string
	}{
		{
			name:    "dba and applicant",
			address: "JOE'S TACOS                            GARCIA, JOSE\n1 MAIN ST\nSACRAMENTO, CA 95814",
			want:    Breakdown{"JOE'S TACOS", "GARCIA, JOSE", "1 MAIN ST", "SACRAMENTO", "CA", "95814"},
		},
		{
			name:    "two spaces start the applicant",
			address: "THE  BAR\n22 K ST\nLOS ANGELES, CA 90012-1234",
			want:    Breakdown{"THE", "BAR", "22 K ST", "LOS ANGELES", "CA", "90012-1234"},
		},
		{
			name:    "single spaces stay in the dba",
			address: "CORNER MARKET LLC\n9 ELM AVE\nFRESNO, ca 93701",
			want:    Breakdown{DBA: "CORNER MARKET LLC", Street: "9 ELM AVE", City: "FRESNO", State: "CA", ZipCode: "93701"},
		},
		{
			name:    "unit on its own line",
			address: "CAFE ROMA   ROSSI, ANNA\n100 PINE ST\nSTE 4\nSAN FRANCISCO, CA 94111\r\n",
			want:    Breakdown{"CAFE ROMA", "ROSSI, ANNA", "100 PINE ST STE 4", "SAN FRANCISCO", "CA", "94111"},
		},
		{
			name:     "empty",
			address:  " \n ",
			wantPart: "owner line",
		},
		{
			name:     "no street",
			address:  "JOE'S TACOS",
			want:     Breakdown{DBA: "JOE'S TACOS"},
			wantPart: "street line",
		},
		{
			name:     "no zip code",
			address:  "JOE'S TACOS\n1 MAIN ST\nSACRAMENTO CA",
			want:     Breakdown{DBA: "JOE'S TACOS", Street: "1 MAIN ST"},
			wantPart: "city line",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.address)
			if tt.wantPart == "" {
				if err != nil {
					t.Fatal(err)
				}
			} else {
				var unparseable UnparseableAddressError
				if !errors.As(err, &unparseable) || unparseable.Part != tt.wantPart {
					t.Fatalf("want UnparseableAddressError on %v, got %v", tt.wantPart, err)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	records := []map[string]string{
		{"License Type": "41", Field: "JOE'S TACOS   GARCIA, JOSE\n1 MAIN ST\nSACRAMENTO, CA 95814", "Report Date": "June 03, 2024"},
		{"License Type": "47", Field: "???", "Report Date": "June 03, 2024"},
	}
	breakdowns, problems := Breakdowns(records)
	if len(problems) != 1 || problems[1] == nil {
		t.Errorf("problems = %v", problems)
	}

	merged, err := Merge(records, breakdowns)
	if err != nil {
		t.Fatal(err)
	}
	shouldBe := []map[string]string{
		{"License Type": "41", "Report Date": "June 03, 2024",
			"DBA": "JOE'S TACOS", "Applicant": "GARCIA, JOSE", "Street": "1 MAIN ST", "City": "SACRAMENTO", "State": "CA", "ZipCode": "95814"},
		{"License Type": "47", "Report Date": "June 03, 2024",
			"DBA": "???", "Applicant": "", "Street": "", "City": "", "State": "", "ZipCode": ""},
	}
	if diff := cmp.Diff(shouldBe, merged); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
	if _, ok := records[0]["DBA"]; ok {
		t.Error("Merge modified its input")
	}

	headers := MergedHeaders([]string{"License Type", Field, "Report Date"})
	if diff := cmp.Diff([]string{"License Type", "Report Date", "DBA", "Applicant", "Street", "City", "State", "ZipCode"}, headers); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
	rows := Rows(headers, merged)
	if diff := cmp.Diff([]string{"41", "June 03, 2024", "JOE'S TACOS", "GARCIA, JOSE", "1 MAIN ST", "SACRAMENTO", "CA", "95814"}, rows[0]); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
}

func TestMerge_LengthMismatch(t *testing.T) {
	_, err := Merge([]map[string]string{{}, {}}, []Breakdown{{}})
	var mismatch LengthMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want LengthMismatchError, got %v", err)
	}
	if mismatch != (LengthMismatchError{2, 1}) {
		t.Errorf("got %+v", mismatch)
	}

	merged, err := Merge(nil, nil)
	if err != nil || len(merged) != 0 {
		t.Errorf("Merge(nil, nil) = %v, %v", merged, err)
	}
}
