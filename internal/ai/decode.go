package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"lectorgastos/internal/util"
)

const responseSchemaJSON = `{
  "type": "array",
  "minItems": 1,
  "items": {"type": "object"}
}`

var (
	responseSchema = jsonschema.MustCompileString("response.json", responseSchemaJSON)

	fencePattern         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
)

var errNoArray = errors.New("no JSON array in response")

// decodeObjects turns a model reply into its list of JSON objects. The reply may
// be fenced, wrapped in prose, or carry trailing commas.
func decodeObjects(raw string) ([]map[string]any, error) {
	body := cleanModelJSON(raw)
	if body == "" {
		return nil, errNoArray
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := responseSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("response shape: %w", err)
	}

	arr, _ := v.([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		obj, _ := item.(map[string]any)
		out = append(out, obj)
	}
	return out, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	end := strings.LastIndex(s, "]")
	first := ""
	for i := 0; i < end; i++ {
		if s[i] != '[' {
			continue
		}
		candidate := trailingCommaPattern.ReplaceAllString(s[i:end+1], "$1")
		if json.Valid([]byte(candidate)) {
			return candidate
		}
		if first == "" {
			first = candidate
		}
	}
	return first
}

// toAmount reads a model-provided amount as a non-negative value rounded to cents.
func toAmount(v any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case float64:
		d = decimal.NewFromFloat(t)
	case string:
		s := strings.NewReplacer("$", "", " ", "").Replace(strings.TrimSpace(t))
		if s == "" {
			return decimal.Zero, false
		}
		d, err = decimal.NewFromString(util.NormalizeAmountToken(s))
	default:
		return decimal.Zero, false
	}
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs().Round(2), true
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
