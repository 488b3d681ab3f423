package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column is one name/value pair of a record. Values are limited to what the
// wire format carries: string, int64, float64 or nil.
type Column struct {
	Name  string
	Value any
}

// Record is an ordered mapping from column name to value. Order matters:
// the insertion engine emits the column list in exactly this order, and
// retrieval returns columns in result-set order. A plain Go map would lose
// that, so a record is a slice.
type Record []Column

// Names returns the column names in record order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Values returns the bound values in record order.
func (r Record) Values() []any {
	values := make([]any, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// Get returns the value for name, or (nil, false) when absent.
func (r Record) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a JSON object into a record, preserving the key
// order of the document. encoding/json's map decoding would shuffle keys,
// so this walks the token stream instead.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	var rec Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: non-string key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		val, err := decodeValue(valTok)
		if err != nil {
			return fmt.Errorf("record: column %q: %w", key, err)
		}
		rec = append(rec, Column{Name: key, Value: val})
	}

	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = rec
	return nil
}

// MarshalJSON renders the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeValue(tok json.Token) (any, error) {
	switch v := tok.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable number %q", v.String())
		}
		return f, nil
	case json.Delim:
		return nil, fmt.Errorf("nested values are not supported")
	default:
		// bool is the only token type left
		return nil, fmt.Errorf("unsupported value type %T", tok)
	}
}

// ParseRecords decodes an insertion payload. AWARE clients post either a
// single JSON object or an array of objects; both shapes land in the same
// []Record. isBatch reports which shape arrived so responses can match it.
func ParseRecords(data []byte) (records []Record, isBatch bool, err error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, Validationf("empty request body")
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, true, Validationf("invalid json: %v", err)
		}
		return records, true, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, Validationf("invalid json: %v", err)
	}
	return []Record{rec}, false, nil
}
