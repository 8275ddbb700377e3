package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	scraper "github.com/koizuka/abcreport"
	"github.com/xuri/excelize/v2"
)

var (
	testHeaders = []string{"License Type", "Primary Owner and Premises Addr.", "Report Date"}
	testRows    = [][]string{
		{"41", "JOE'S TACOS\n1 MAIN ST\nSACRAMENTO, CA 95814", "June 03, 2024"},
		{"47", "THE BAR & GRILL <2>", "June 04, 2024"},
	}
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{"csv", []Format{CSV}, false},
		{"CSV, json,xlsx,csv", []Format{CSV, JSON, XLSX}, false},
		{"pdf", nil, true},
		{" , ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormats() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	start := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)
	if got := Filename(start, end, JSON); got != "license_report_2024-06-03_2024-06-05.json" {
		t.Errorf("Filename() = %v", got)
	}
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "out.csv")
	if err := WriteCSVFile(path, testHeaders, testRows); err != nil {
		t.Fatal(err)
	}
	got, err := scraper.ReadCSVFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(append([][]string{testHeaders}, testRows...), got); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	rows := [][]string{testRows[0], {"47"}}
	if err := WriteJSONFile(path, testHeaders, rows); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	shouldBe := `[
    {
        "License Type": "41",
        "Primary Owner and Premises Addr.": "JOE'S TACOS\n1 MAIN ST\nSACRAMENTO, CA 95814",
        "Report Date": "June 03, 2024"
    },
    {
        "License Type": "47"
    }
]
`
	if diff := cmp.Diff(shouldBe, string(b)); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := WriteJSONFile(empty, testHeaders, nil); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(empty); string(b) != "[]\n" {
		t.Errorf("empty dataset = %q", b)
	}
}

func TestWriteXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Write(path, XLSX, testHeaders, testRows); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(append([][]string{testHeaders}, testRows...), got); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
}

func TestWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	for _, format := range []Format{CSV, JSON, XLSX} {
		t.Run(string(format), func(t *testing.T) {
			// a regular file stands where the directory should be
			err := Write(filepath.Join(blocker, "out."+string(format)), format, testHeaders, testRows)
			var writeErr WriteError
			if !errors.As(err, &writeErr) {
				t.Errorf("want WriteError, got %v", err)
			}
		})
	}
}
