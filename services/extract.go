package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"atomrouter/models"
)

var (
	jsonFenceRe   = regexp.MustCompile("```json\\s*")
	fenceRe       = regexp.MustCompile("```\\s*")
	flatObjectRe  = regexp.MustCompile(`\{[^{}]*\}`)
	arrayRe       = regexp.MustCompile(`\[[\s\S]*\]`)
	embeddedNumRe = regexp.MustCompile(`(\d+\.?\d*)`)
	separatedRe   = regexp.MustCompile(`([^:|–-]+)[:|–-]\s*(\d+\.?\d*)`)
	trailingNumRe = regexp.MustCompile(`(.+?)\s+(\d+\.?\d*)$`)
)

type seriesStrategy func(text string) *models.ExtractedSeries

// extractionStrategies are tried in order; the first one yielding a valid series wins
var extractionStrategies = []seriesStrategy{
	seriesFromFlatObject,
	seriesFromObjectArray,
	seriesFromLines,
}

// ExtractSeries recovers a label -> value series from free-form provider output.
// It returns nil when nothing usable is found and never fails on malformed input.
func ExtractSeries(text string) *models.ExtractedSeries {
	text = jsonFenceRe.ReplaceAllString(text, "")
	text = fenceRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	for _, strategy := range extractionStrategies {
		if series := strategy(text); series.Valid() {
			return series
		}
	}
	return nil
}

// seriesFromFlatObject reads the first brace-delimited object without nesting
// as {label: value}
func seriesFromFlatObject(text string) *models.ExtractedSeries {
	match := flatObjectRe.FindString(text)
	if match == "" {
		return nil
	}

	fields, err := decodeOrderedObject([]byte(match))
	if err != nil || len(fields) == 0 {
		return nil
	}

	series := &models.ExtractedSeries{}
	for _, f := range fields {
		series.Labels = append(series.Labels, f.key)
		series.Values = append(series.Values, coerceObjectValue(f.value))
	}
	return series
}

// seriesFromObjectArray reads a list of objects, using the first object's first
// key as the label field and its second key (or the first again) as the value field
func seriesFromObjectArray(text string) *models.ExtractedSeries {
	match := arrayRe.FindString(text)
	if match == "" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(match), &items); err != nil || len(items) == 0 {
		return nil
	}

	first, err := decodeOrderedObject(items[0])
	if err != nil || len(first) == 0 {
		return nil
	}
	labelKey := first[0].key
	valueKey := labelKey
	if len(first) > 1 {
		valueKey = first[1].key
	}

	series := &models.ExtractedSeries{}
	for _, raw := range items {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			continue
		}

		series.Labels = append(series.Labels, labelString(item[labelKey]))
		series.Values = append(series.Values, numericOr(item[valueKey], 1))
	}
	return series
}

// seriesFromLines scans "label: 12", "label | 12", "label - 12" or "label 12" lines
func seriesFromLines(text string) *models.ExtractedSeries {
	series := &models.ExtractedSeries{}

	for _, line := range strings.Split(text, "\n") {
		if m := separatedRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				series.Labels = append(series.Labels, strings.TrimSpace(m[1]))
				series.Values = append(series.Values, v)
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) <= 3 {
			continue
		}
		if m := trailingNumRe.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				series.Labels = append(series.Labels, strings.TrimSpace(m[1]))
				series.Values = append(series.Values, v)
			}
		}
	}

	if len(series.Labels) == 0 {
		return nil
	}
	return series
}

type objectField struct {
	key   string
	value any
}

// decodeOrderedObject decodes a JSON object keeping key order. A repeated key
// keeps its first position and takes the last value.
func decodeOrderedObject(data []byte) ([]objectField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var fields []objectField
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		if i, seen := index[key]; seen {
			fields[i].value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, objectField{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

var errNotObject = errors.New("not a JSON object")

func coerceObjectValue(v any) float64 {
	switch val := v.(type) {
	case float64, bool:
		return numericOr(val, 1)
	case string:
		if m := embeddedNumRe.FindString(val); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return f
			}
		}
		return float64(utf8.RuneCountInString(val))
	default:
		return 1
	}
}

// numericOr returns v as a number, treating booleans as 0 or 1, and fallback
// for anything else, including a missing value
func numericOr(v any, fallback float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return fallback
	}
}

func labelString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
