package scraper

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"
)

type Response struct {
	Request     *http.Request
	ContentType string
	CharSet     string
	Body        []byte
	Encoding    encoding.Encoding // nil until the body has been decoded to UTF-8
	Logger      Logger
}

// Page parses the body as HTML. When the response header did not name a charset,
// one declared in the document head is honored.
func (response *Response) Page() (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(response.Body))
	if err != nil {
		return nil, err
	}

	if response.Encoding == nil {
		if enc, ok := GetEncodingFromPageHead(doc.Selection); ok && enc != nil {
			response.Logger.Printf("converting from %v...\n", enc)
			b, err := convertEncodingToUtf8(response.Body, enc)
			if err != nil {
				return nil, err
			}
			response.Body = b
			response.Encoding = enc

			doc, err = goquery.NewDocumentFromReader(bytes.NewReader(response.Body))
			if err != nil {
				return nil, err
			}
		}
	}

	// goquery.NewDocumentFromResponse だとUrl設定されるが NewDocumentFromReader は設定されないので同等にする
	doc.Url = response.Request.URL
	baseUrl := doc.Url
	if href, exists := doc.Find("head base").Attr("href"); exists {
		baseUrl, err = doc.Url.Parse(href)
		if err != nil {
			return nil, err
		}
	}

	response.Logger.Printf("* %v\n", strings.TrimSpace(doc.Find("title").Text()))

	return &Page{doc, baseUrl, response.Logger}, nil
}

// GetEncodingFromPageHead looks for <meta charset> or <meta http-equiv="Content-Type"> in head.
// The second result is false when neither is present.
func GetEncodingFromPageHead(doc *goquery.Selection) (encoding.Encoding, bool) {
	charset := ""
	if metaCharset, exists := doc.Find("head meta[charset]").Attr("charset"); exists {
		charset = metaCharset
	}
	if content, exists := doc.Find("head meta[http-equiv]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("http-equiv", ""), "Content-Type")
	}).Attr("content"); exists {
		if cs := charsetFromContentType(content); cs != "" {
			charset = cs
		}
	}
	if charset == "" {
		return nil, false
	}
	return charsetEncoding(charset), true
}

func resolveURL(base *url.URL, ref string) (*url.URL, error) {
	if base == nil {
		return url.Parse(ref)
	}
	return base.Parse(ref)
}
