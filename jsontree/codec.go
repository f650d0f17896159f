package jsontree

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mcncl/jsonmigration/internal/errors"
)

// Parse reads exactly one JSON value from reader, preserving object key order.
func Parse(reader io.Reader) (Value, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	tok, err := decoder.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return nil, wrapDecodeError(err)
	}
	root, err := parseValue(decoder, tok)
	if err != nil {
		return nil, wrapDecodeError(err)
	}

	if _, err := decoder.Token(); err != io.EOF {
		if err != nil {
			return nil, errors.NewParsingError("invalid trailing data after first JSON value", err)
		}
		return nil, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}
	return root, nil
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", filePath), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError(fmt.Sprintf("failed to open file '%s'", filePath), err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to get file stats for '%s'", filePath), err)
	}
	if stat.Size() == 0 {
		return nil, errors.NewInputError(fmt.Sprintf("input file '%s' is empty", filePath), errors.ErrFileEmpty)
	}
	return Parse(file)
}

func parseValue(decoder *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range: %w", t, err)
		}
		return Number(f), nil
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for decoder.More() {
				keyTok, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not a string", keyTok)
				}
				valTok, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				val, err := parseValue(decoder, valTok)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array{}
			for decoder.More() {
				elemTok, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				elem, err := parseValue(decoder, elemTok)
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func wrapDecodeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset), errors.ErrInvalidJSON)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, io.EOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

// Marshal renders v as compact JSON text. Non-finite numbers are rejected.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent renders v as indented JSON text.
func MarshalIndent(v Value, indent string) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ToJSON renders v as compact JSON text, substituting null for values that
// cannot be encoded.
func ToJSON(v Value) string {
	b, err := Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func write(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.NewConversionError(fmt.Sprintf("cannot encode non-finite number %v", f), errors.ErrUnsupportedKind)
		}
		buf.WriteString(FormatNumber(f))
	case String:
		writeString(buf, string(t))
	case Array:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		for i, m := range t.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.Key)
			buf.WriteByte(':')
			if err := write(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.NewConversionError(fmt.Sprintf("cannot encode %T", v), errors.ErrUnsupportedKind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	// json.Marshal of a string cannot fail.
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// WriteQuoted appends the JSON string literal for s.
func WriteQuoted(buf *bytes.Buffer, s string) {
	writeString(buf, s)
}
