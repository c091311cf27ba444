package report

import (
	"encoding/json"
	"reflect"

	"github.com/jmespath/go-jmespath"
)

// ExtractField evaluates the given JMESPath expression against a record's
// message (decoded as JSON if possible; otherwise wrapped as
// {"message": raw}) and returns a string form of the result. Array results
// use the first element only. Extraction never fails the report: invalid
// expressions and empty results both report ("", false).
func ExtractField(message, jmes string) (string, bool) {
	if message == "" {
		return "", false
	}
	var input any
	var decoded any
	if err := json.Unmarshal([]byte(message), &decoded); err == nil {
		input = decoded
	} else {
		input = map[string]any{"message": message}
	}

	res, err := jmespath.Search(jmes, input)
	if err != nil || isEmpty(res) {
		return "", false
	}
	// If array/slice, take the first element only
	rv := reflect.ValueOf(res)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		if rv.Len() == 0 {
			return "", false
		}
		res = rv.Index(0).Interface()
		if isEmpty(res) {
			return "", false
		}
	}
	switch v := res.(type) {
	case string:
		return v, v != ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		s := string(b)
		if s == "" || s == "null" || s == "[]" || s == "{}" {
			return "", false
		}
		return s, true
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
