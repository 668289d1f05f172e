package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Fixed leading columns of the consolidated report.
var FixedColumns = []string{"filename", "doc_type", "confidence", "processed_at", "status"}

const dataPrefix = "data_"

// Row is one flattened result. Keys keeps first-seen column order.
type Row struct {
	Keys   []string
	Values map[string]string
}

func (r *Row) set(k, v string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	if _, ok := r.Values[k]; !ok {
		r.Keys = append(r.Keys, k)
	}
	r.Values[k] = v
}

type field struct {
	Key   string
	Value json.RawMessage
}

// fields is a JSON object decoded with its key order intact.
type fields []field

func (f *fields) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out fields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out = append(out, field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

type resultFile struct {
	Metadata fields `json:"metadata"`
	Data     fields `json:"data"`
}

// FlattenResult turns one result file into a row: metadata keys hoisted,
// classification split into doc_type and confidence, data keys prefixed with data_.
func FlattenResult(raw []byte) (Row, error) {
	var rf resultFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return Row{}, fmt.Errorf("decode result: %w", err)
	}

	var row Row
	for _, f := range rf.Metadata {
		if f.Key != "classification" {
			row.set(f.Key, cell(f.Value))
			continue
		}
		var cls struct {
			Type       json.RawMessage `json:"type"`
			Confidence json.RawMessage `json:"confidence"`
		}
		if err := json.Unmarshal(f.Value, &cls); err != nil {
			continue
		}
		row.set("doc_type", cell(cls.Type))
		row.set("confidence", cell(cls.Confidence))
	}
	for _, f := range rf.Data {
		row.set(dataPrefix+f.Key, cell(f.Value))
	}
	return row, nil
}

// cell renders a JSON value as report text. Lists and objects stay a single
// compact JSON value.
func cell(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case 'n':
		return ""
	case 't', 'f':
		return string(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return s
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return string(raw)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
