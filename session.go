package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	cookiejar "github.com/orirawlings/persistent-cookiejar"
	"golang.org/x/text/encoding"
	"golang.org/x/time/rate"
)

const (
	UserAgent_chrome126 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	UserAgent_default   = UserAgent_chrome126
)

// Session holds communication and logging options
type Session struct {
	Name               string // directory name to store session files(downloaded files and cookies)
	client             http.Client
	Encoding           encoding.Encoding // force charset over Content-Type response header
	UserAgent          string            // specify User-Agent
	FilePrefix         string            // prefix to directory of session files
	invokeCount        int
	NotUseNetwork      bool // load from previously downloaded session files rather than network access
	SaveToFile         bool // save downloaded pages to session directory
	ShowRequestHeader  bool // print request headers with Logger
	ShowResponseHeader bool // print response headers with Logger
	Log                Logger
	jar                *cookiejar.Jar
	limiter            *rate.Limiter
	debugStep          string
}

func NewSession(name string, log Logger) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		Name:      name,
		UserAgent: UserAgent_default,
		client: http.Client{
			Jar: jar,
		},
		Log:     log,
		jar:     jar,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func (session *Session) Printf(format string, a ...interface{}) {
	session.Log.Printf(format, a...)
}

// SetRateLimit spaces out requests to at most perSecond, allowing burst at once.
// perSecond <= 0 removes the limit.
func (session *Session) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		session.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	if burst < 1 {
		burst = 1
	}
	session.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// SetDebugStep labels the following SAVE/LOAD log lines.
func (session *Session) SetDebugStep(step string) {
	session.debugStep = step
}

func (session *Session) GetDebugStep() string {
	return session.debugStep
}

func (session *Session) ClearDebugStep() {
	session.debugStep = ""
}

func (session *Session) stepPrefix() string {
	if session.debugStep == "" {
		return ""
	}
	return fmt.Sprintf("[%s] ", session.debugStep)
}

func (session *Session) Cookies(u *url.URL) []*http.Cookie {
	return session.client.Jar.Cookies(u)
}

func (session *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	session.client.Jar.SetCookies(u, cookies)
}

func (session *Session) LoadCookie() error {
	filename := fmt.Sprintf("%v/cookie", session.getDirectory())

	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:              filename,
		PersistSessionCookies: true,
	})
	if err == nil {
		session.jar = jar
		session.client.Jar = jar
	}
	return err
}

// SaveCookie stores cookies to a file.
// must call LoadCookie() before call SaveCookie().
func (session *Session) SaveCookie() error {
	return session.jar.Save()
}

func (session *Session) getDirectory() string {
	return fmt.Sprintf("%v%v", session.FilePrefix, session.Name)
}

func (session *Session) getHtmlFilename() string {
	return path.Join(session.getDirectory(), fmt.Sprintf("%v.html", session.invokeCount))
}

func (session *Session) ensureDirectory() error {
	dirname := session.getDirectory()
	if _, err := os.Stat(dirname); err != nil && os.IsNotExist(err) {
		if err := os.MkdirAll(dirname, os.FileMode(0744)); err != nil {
			return err
		}
	}
	return nil
}

func (session *Session) invoke(ctx context.Context, req *http.Request) (*Response, error) {
	var body []byte
	var metadata PageMetadata

	if session.NotUseNetwork || session.SaveToFile {
		if err := session.ensureDirectory(); err != nil {
			return nil, err
		}
	}

	session.invokeCount++
	filename := session.getHtmlFilename()

	if session.ShowRequestHeader {
		session.Printf("REQUEST: %v %v:\n", req.Method, req.URL.String())
	}

	if !session.NotUseNetwork {
		if err := session.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		userAgent := session.UserAgent
		if userAgent == "" {
			userAgent = UserAgent_default
		}
		req = req.WithContext(ctx)
		req.Header.Set("User-agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
		req.Header.Set("DNT", "1")

		if session.ShowRequestHeader {
			session.Printf("Request header:{\n")
			for k, v := range req.Header {
				session.Printf("  %v: %v\n", k, v)
			}
			session.Printf("}\n")
		}

		response, err := session.client.Do(req)
		if err != nil {
			return nil, RequestError{req.URL, err}
		}
		defer response.Body.Close()

		req = response.Request // update req.Url after redirects

		if session.ShowResponseHeader {
			session.Printf("Response Header:\n")
			for k, v := range response.Header {
				session.Printf("  %v: %v\n", k, v)
			}
		}

		body, err = io.ReadAll(response.Body)
		if err != nil {
			return nil, err
		}
		metadata = PageMetadata{
			URL:         req.URL.String(),
			ContentType: response.Header.Get("content-type"),
			StatusCode:  response.StatusCode,
		}

		if session.SaveToFile {
			session.Printf("**** %vSAVE to %v (%v bytes)\n", session.stepPrefix(), filename, len(body))
			if err := os.WriteFile(filename, body, os.FileMode(0644)); err != nil {
				return nil, err
			}
			if err := savePageMetadata(filename, metadata); err != nil {
				return nil, err
			}
		}
	} else {
		session.Printf("**** %vLOAD from %v\n", session.stepPrefix(), filename)
		var err error
		body, err = os.ReadFile(filename)
		if err != nil {
			return nil, RetryAndRecordError{filename}
		}
		metadata, err = loadPageMetadata(filename)
		if err != nil {
			return nil, RetryAndRecordError{filename}
		}
		if u, err := url.Parse(metadata.URL); err == nil {
			req.URL = u
		}
	}

	switch {
	case metadata.StatusCode == http.StatusForbidden:
		return nil, ForbiddenError{req.URL.String()}
	case metadata.StatusCode != 0 && metadata.StatusCode/100 != 2:
		return nil, ResponseError{req.URL, fmt.Sprintf("%d %s", metadata.StatusCode, http.StatusText(metadata.StatusCode)), metadata.StatusCode}
	}

	contentType := metadata.ContentType
	if session.ShowResponseHeader {
		session.Printf("Content-type: %v\n", contentType)
	}

	charSet := charsetFromContentType(contentType)

	encode := session.Encoding
	if encode == nil {
		encode = charsetEncoding(charSet)
	}
	if encode != nil {
		if session.ShowResponseHeader {
			session.Printf("converting from %v...\n", encode)
		}
		b, err := convertEncodingToUtf8(body, encode)
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &Response{
		Request:     req,
		ContentType: contentType,
		CharSet:     charSet,
		Body:        body,
		Encoding:    encode,
		Logger:      session,
	}, nil
}

// Get invokes HTTP GET request.
func (session *Session) Get(ctx context.Context, getUrl string) (*Response, error) {
	req, err := http.NewRequest("GET", getUrl, nil)
	if err != nil {
		return nil, err
	}
	return session.invoke(ctx, req)
}

// GetPageMaxRedirect gets the URL and follows HTTP meta refresh if response page contained that.
func (session *Session) GetPageMaxRedirect(ctx context.Context, getUrl string, maxRedirect int) (*Page, error) {
	resp, err := session.Get(ctx, getUrl)
	if err != nil {
		return nil, err
	}
	if ct := strings.ToLower(resp.ContentType); ct != "" && !strings.Contains(ct, "html") {
		return nil, UnexpectedContentTypeError{resp.ContentType}
	}
	page, err := resp.Page()
	if err != nil {
		return nil, err
	}
	if maxRedirect > 0 {
		if newUrl := page.MetaRefresh(); newUrl != nil {
			session.Printf("HTML Meta Refresh to: %v\n", newUrl)
			return session.GetPageMaxRedirect(ctx, newUrl.String(), maxRedirect-1)
		}
	}
	return page, nil
}

// GetPage gets the URL and returns a Page.
func (session *Session) GetPage(ctx context.Context, getUrl string) (*Page, error) {
	return session.GetPageMaxRedirect(ctx, getUrl, 1)
}
