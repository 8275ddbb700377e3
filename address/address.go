// Package address splits the "Primary Owner and Premises Addr." cell of the report
// into its parts and merges them back onto the report rows.
package address

import (
	"fmt"
	"regexp"
	"strings"
)

// Field is the report column holding the owner and premises address.
const Field = "Primary Owner and Premises Addr."

// Breakdown is the structured form of one address cell:
//
//	JOE'S TACOS          GARCIA, JOSE
//	1 MAIN ST
//	SACRAMENTO, CA 95814
type Breakdown struct {
	DBA       string
	Applicant string
	Street    string
	City      string
	State     string
	ZipCode   string
}

// Fields are the columns a Breakdown adds, in output order.
var Fields = []string{"DBA", "Applicant", "Street", "City", "State", "ZipCode"}

func (b Breakdown) Values() []string {
	return []string{b.DBA, b.Applicant, b.Street, b.City, b.State, b.ZipCode}
}

type UnparseableAddressError struct {
	Address string
	Part    string // which line could not be recognized
}

func (err UnparseableAddressError) Error() string {
	return fmt.Sprintf("unparseable %v in address %q", err.Part, err.Address)
}

var (
	reOwnerLine = regexp.MustCompile(`^(?P<dba>.*?)(?:\s{2,}(?P<applicant>\S.*))?$`)
	reCityLine  = regexp.MustCompile(`^(?P<city>[^,]+?),\s*(?P<state>[A-Za-z]{2})\.?\s+(?P<zip>[0-9]{5}(?:-[0-9]{4})?)$`)
	reSpaces    = regexp.MustCompile(`\s+`)
)

func group(re *regexp.Regexp, m []string, name string) string {
	return strings.TrimSpace(m[re.SubexpIndex(name)])
}

// Parse splits an address cell. Fields recognized before a problem are returned together
// with an UnparseableAddressError.
func Parse(address string) (Breakdown, error) {
	var b Breakdown
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(address, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return b, UnparseableAddressError{address, "owner line"}
	}

	m := reOwnerLine.FindStringSubmatch(lines[0])
	b.DBA = reSpaces.ReplaceAllString(group(reOwnerLine, m, "dba"), " ")
	b.Applicant = reSpaces.ReplaceAllString(group(reOwnerLine, m, "applicant"), " ")

	if len(lines) < 2 {
		return b, UnparseableAddressError{address, "street line"}
	}
	b.Street = lines[1]

	if len(lines) < 3 {
		return b, UnparseableAddressError{address, "city line"}
	}
	m = reCityLine.FindStringSubmatch(lines[len(lines)-1])
	if m == nil {
		return b, UnparseableAddressError{address, "city line"}
	}
	if len(lines) > 3 {
		// suite or unit numbers printed on a line of their own
		b.Street = strings.Join(lines[1:len(lines)-1], " ")
	}
	b.City = group(reCityLine, m, "city")
	b.State = strings.ToUpper(group(reCityLine, m, "state"))
	b.ZipCode = group(reCityLine, m, "zip")
	return b, nil
}
