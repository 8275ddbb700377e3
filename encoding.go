package scraper

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/dimchansky/utfbom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var reContentTypeCharset = regexp.MustCompile(`(?i)charset=["']?([\w-]+)`)

// charsetEncoding parses charset string and returns encoding.Encoding.
// nil means UTF-8 (or unknown), which needs no conversion.
func charsetEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "windows-1252", "cp1252", "x-cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin1", "iso_8859-1":
		return charmap.ISO8859_1
	case "shift_jis", "windows-31j", "x-sjis":
		return japanese.ShiftJIS
	case "euc-jp":
		return japanese.EUCJP
	}
	return nil
}

// CharsetEncoding is the exported form of charsetEncoding for configuration values.
func CharsetEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc := charsetEncoding(charset)
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc, nil
}

// convertEncodingToUtf8 converts body(given encoding) to UTF-8.
func convertEncodingToUtf8(body []byte, encoding encoding.Encoding) ([]byte, error) {
	if encoding == nil {
		return body, nil
	}
	b, _, err := transform.Bytes(encoding.NewDecoder(), body)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func charsetFromContentType(contentType string) string {
	m := reContentTypeCharset.FindStringSubmatch(contentType)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func containsForbidden(s string) bool {
	return strings.Contains(s, "403 Forbidden")
}

// ReadCSV reads every record of a CSV export. A leading BOM is skipped and the body is
// decoded from enc first when enc is not nil. Records may have differing field counts.
func ReadCSV(r io.Reader, enc encoding.Encoding) ([][]string, error) {
	var reader io.Reader = utfbom.SkipOnly(r)
	if enc != nil {
		reader = transform.NewReader(reader, enc.NewDecoder())
	}
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func ReadCSVFile(filename string, enc encoding.Encoding) ([][]string, error) {
	body, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	records, err := ReadCSV(bytes.NewReader(body), enc)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return records, nil
}
