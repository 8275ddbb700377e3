package scraper

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Unmarshaller interface {
	Unmarshal(s string) error
}

type UnmarshalMustBePointerError struct{}

func (err UnmarshalMustBePointerError) Error() string {
	return "must be a pointer to the value"
}

type UnmarshalUnexportedFieldError struct{}

func (err UnmarshalUnexportedFieldError) Error() string {
	return "field must be exported"
}

type UnmarshalFieldError struct {
	Field string
	Err   error
}

func (err UnmarshalFieldError) Error() string {
	e := err.Err
	fields := []string{err.Field}
	next, ok := e.(UnmarshalFieldError)
	for ok {
		fields = append(fields, next.Field)
		e = next.Err
		next, ok = e.(UnmarshalFieldError)
	}
	return fmt.Sprintf("%v: %v", strings.Join(fields, "."), e)
}

func (err UnmarshalFieldError) Unwrap() error { return err.Err }

type UnmarshalParseNumberError struct {
	Err  error
	Text string
}

func (err UnmarshalParseNumberError) Error() string {
	return fmt.Sprintf("%#v: %v", err.Text, err.Err)
}

type UnmarshalOption struct {
	Attr string         // if nonempty, extracts attribute of element. otherwise, uses Text()
	Re   string         // Regular Expression. must contain one capture.
	Time string         // for time.Time only. parse with this format.
	Loc  *time.Location // time zone for parsing time.Time.
}

const (
	findTag = "find"
	attrTag = "attr"
	timeTag = "time"
	reTag   = "re"
)

var reDigitSeparators = regexp.MustCompile("[, \u00a0\u3000]")

type selectedText struct {
	Sel  *goquery.Selection
	Text string
}

// selectTexts extracts a text per element of sel, applying opt.Attr and opt.Re.
// Elements without the attribute, or whose text does not match Re, are dropped.
func selectTexts(sel *goquery.Selection, opt UnmarshalOption) ([]selectedText, error) {
	var re *regexp.Regexp
	if opt.Re != "" {
		var err error
		re, err = regexp.Compile(opt.Re)
		if err != nil {
			return nil, fmt.Errorf("re:%#v: %v", opt.Re, err)
		}
	}

	selected := make([]selectedText, 0, sel.Length())
	for i := 0; i < sel.Length(); i++ {
		j := sel.Eq(i)

		var s string
		if opt.Attr != "" {
			w, ok := j.Attr(opt.Attr)
			if !ok {
				continue
			}
			s = w
		} else {
			s = j.Text()
		}

		if re != nil {
			submatch := re.FindStringSubmatch(s)
			switch n := len(submatch) - 1; {
			case n == -1:
				continue
			case n != 1:
				return nil, fmt.Errorf("re:%#v: matched count of the regular expression is %d, should be 0 or 1, for text %#v", opt.Re, n, s)
			}
			s = submatch[1]
		}
		selected = append(selected, selectedText{j, s})
	}
	return selected, nil
}

func unmarshalValue(value reflect.Value, sel *goquery.Selection, opt UnmarshalOption) error {
	if !value.CanSet() {
		return errors.New("value must CanSet")
	}

	selected, err := selectTexts(sel, opt)
	if err != nil {
		return err
	}

	switch value.Kind() {
	case reflect.Slice:
		rv := reflect.MakeSlice(value.Type(), len(selected), len(selected))
		for i := range selected {
			if err := unmarshalValueOne(rv.Index(i), selected[i].Sel, selected[i].Text, opt); err != nil {
				return fmt.Errorf("#%d: %w", i, err)
			}
		}
		value.Set(rv)
		return nil

	case reflect.Ptr:
		if len(selected) == 0 {
			value.Set(reflect.Zero(value.Type()))
			return nil
		}
		newValue := reflect.New(value.Type().Elem())
		value.Set(newValue)
		value = newValue.Elem()
	}

	if len(selected) != 1 {
		return fmt.Errorf("length(%v) != 1", len(selected))
	}
	return unmarshalValueOne(value, selected[0].Sel, selected[0].Text, opt)
}

func unmarshalStruct(value reflect.Value, sel *goquery.Selection, opt UnmarshalOption) error {
	if opt.Re != "" {
		return fmt.Errorf("`re` tag must be empty for struct")
	}
	if opt.Attr != "" {
		return fmt.Errorf("`attr` tag must be empty for struct")
	}

	vt := value.Type()
	for i := 0; i < vt.NumField(); i++ {
		fieldType := vt.Field(i)
		if fieldType.PkgPath != "" {
			return UnmarshalFieldError{fieldType.Name, UnmarshalUnexportedFieldError{}}
		}

		selected := sel
		if selector := fieldType.Tag.Get(findTag); selector != "" {
			selected = sel.Find(selector)
		}

		fieldOpt := UnmarshalOption{
			Attr: fieldType.Tag.Get(attrTag),
			Time: fieldType.Tag.Get(timeTag),
			Re:   fieldType.Tag.Get(reTag),
			Loc:  opt.Loc,
		}
		if err := unmarshalValue(value.Field(i), selected, fieldOpt); err != nil {
			return UnmarshalFieldError{fieldType.Name, err}
		}
	}
	return nil
}

func unmarshalValueOne(value reflect.Value, sel *goquery.Selection, s string, opt UnmarshalOption) error {
	if _, ok := value.Interface().(time.Time); ok {
		if opt.Time == "" {
			return fmt.Errorf("time.Time: time tag is required")
		}
		t, err := time.ParseInLocation(opt.Time, strings.TrimSpace(s), opt.Loc)
		if err != nil {
			return err
		}
		value.Set(reflect.ValueOf(t))
		return nil
	}

	if opt.Time != "" {
		return fmt.Errorf("`time` tag must be empty unless time.Time")
	}
	if !value.CanAddr() {
		return fmt.Errorf("failed CanAddr: %v, %v", value, value.Type())
	}

	// その型が Unmarshaller を実装しているならそれを呼ぶ
	if inf, ok := value.Addr().Interface().(Unmarshaller); ok {
		return inf.Unmarshal(s)
	}

	switch value.Kind() {
	case reflect.Struct:
		return unmarshalStruct(value, sel, opt)

	case reflect.String:
		value.SetString(s)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		if _, err := fmt.Sscanf(reDigitSeparators.ReplaceAllString(strings.TrimSpace(s), ""), "%d", &i); err != nil {
			return UnmarshalParseNumberError{err, s}
		}
		value.SetInt(i)

	default:
		return fmt.Errorf("unknown type %v", value.Type())
	}
	return nil
}

// Unmarshal parses selection and stores to v.
// if v is a struct, each field may specify following tags.
//   - `find` tag with CSS selector to specify sub element.
//   - `attr` tag with attribute name to get a text. if this tag not exists, get a text from text element.
//   - `re` tag with regular expression, use only matched substring from a text.
//   - `time` tag with time format to parse for time.Time.
func Unmarshal(v interface{}, selection *goquery.Selection, opt UnmarshalOption) error {
	if opt.Loc == nil {
		opt.Loc = time.Local
	}

	ht := reflect.TypeOf(v)
	if ht == nil || ht.Kind() != reflect.Ptr {
		return UnmarshalMustBePointerError{}
	}

	return unmarshalValue(reflect.ValueOf(v).Elem(), selection, opt)
}
