package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoData is returned for a nil or empty record set.
var ErrNoData = errors.New("No data provided or invalid data format")

// ParamError reports an invalid call parameter.
type ParamError struct {
	Msg string
}

func (e *ParamError) Error() string {
	return e.Msg
}

func paramErrorf(format string, args ...any) error {
	return &ParamError{Msg: fmt.Sprintf(format, args...)}
}

// ErrorResult is the JSON shape the dashboard checks for before using a
// result.
type ErrorResult struct {
	Error string `json:"error"`
}

// Respond converts an analysis outcome into the value sent to the
// presentation layer: the result itself, or an ErrorResult.
func Respond(value any, err error) any {
	if err != nil {
		log.Debug().Err(err).Msg("analysis returned an error result")
		return ErrorResult{Error: err.Error()}
	}
	return value
}

// Entry is one group's value. A nil Value serializes as null.
type Entry struct {
	Key   string
	Value *float64
}

// Values is an insertion-ordered mapping of group key to value. It
// serializes as a JSON object in order.
type Values []Entry

// Get returns the value for key and whether the key is present.
func (v Values) Get(key string) (*float64, bool) {
	for _, entry := range v {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

func (v Values) Keys() []string {
	keys := make([]string, len(v))
	for i, entry := range v {
		keys[i] = entry.Key
	}
	return keys
}

// Map copies the values into a plain map.
func (v Values) Map() map[string]*float64 {
	out := make(map[string]*float64, len(v))
	for _, entry := range v {
		out[entry.Key] = entry.Value
	}
	return out
}

func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if entry.Value == nil {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(*entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Sort orders.
const (
	SortNone = ""
	SortAsc  = "asc"
	SortDesc = "desc"
)

func parseSort(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SortNone:
		return SortNone, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", paramErrorf("Invalid sort. Must be one of: asc, desc")
}

func valueOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

// sortValues orders by value with nulls as zero, breaking ties by key.
func sortValues(values Values, order string) {
	sort.SliceStable(values, func(i, j int) bool {
		a, b := valueOrZero(values[i].Value), valueOrZero(values[j].Value)
		if a == b {
			return values[i].Key < values[j].Key
		}
		if order == SortDesc {
			return a > b
		}
		return a < b
	})
}
