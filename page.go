package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Page struct {
	*goquery.Document
	BaseUrl *url.URL
	Logger  Logger
}

var reMetaRefreshURL = regexp.MustCompile("[uU][rR][lL]=(.*)$")

func (page *Page) MetaRefresh() *url.URL {
	refresh := page.Find("meta[http-equiv=refresh]")
	if refresh.Length() > 0 {
		if content, ok := refresh.Attr("content"); ok {
			submatch := reMetaRefreshURL.FindStringSubmatch(content)
			if len(submatch) > 1 {
				u, err := resolveURL(page.BaseUrl, strings.Trim(submatch[1], `'" `))
				if err != nil {
					return nil
				}
				return u
			}
		}
	}
	return nil
}

// IsForbidden reports whether the page is the site's "403 Forbidden" block page.
func (page *Page) IsForbidden() bool {
	return page.Find("title").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return containsForbidden(s.Text())
	}).Length() > 0
}
