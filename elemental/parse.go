package elemental

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mcncl/jsonmigration/internal/errors"
)

// Parse returns the value encoded by text. Only the top level is decoded
// eagerly; nested objects and arrays are materialised on first access.
func Parse(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	if !gjson.Valid(text) {
		return nil, errors.NewParsingError("invalid JSON text", errors.ErrInvalidJSON)
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null{}
	case gjson.True:
		return Boolean(true)
	case gjson.False:
		return Boolean(false)
	case gjson.String:
		return String(r.String())
	case gjson.Number:
		return numberFromRaw(r)
	case gjson.JSON:
		if r.IsArray() {
			return lazyArray(r)
		}
		return lazyObject(r)
	default:
		return Null{}
	}
}

func numberFromRaw(r gjson.Result) Number {
	raw := strings.TrimSpace(r.Raw)
	if !strings.ContainsAny(raw, ".eE") {
		n := json.Number(raw)
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	return Float(r.Num)
}

func quote(s string) string {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	return string(b)
}
