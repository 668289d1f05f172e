package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// NormalizeRecord reshapes a provider answer so it can validate against spec:
//   - unknown keys are dropped
//   - null strings become "" and strings are trimmed
//   - numeric strings ("1.234,56", "R$ 10,00") become numbers
//   - document_type is pinned to spec.Type
//
// It returns the cleaned record and a list of the adjustments made.
func NormalizeRecord(spec RecordSpec, raw map[string]any, logger *slog.Logger) (map[string]any, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	changes := make([]string, 0, 4)
	out := normalizeFields(spec.Fields, raw, "", &changes)
	if dt, _ := raw["document_type"].(string); dt != string(spec.Type) {
		changes = append(changes, "document_type(pinned)")
	}
	out["document_type"] = string(spec.Type)

	if len(changes) > 0 {
		logger.Warn("llm.extract.normalize", "document_type", spec.Type, "changes", changes)
	}
	return out, changes
}

// DecodeRecord parses a JSON object answer.
func DecodeRecord(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}
	return m, nil
}

func normalizeFields(fields []FieldSpec, raw map[string]any, prefix string, changes *[]string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	known := make(map[string]struct{}, len(fields)+1)
	known["document_type"] = struct{}{}

	for _, f := range fields {
		known[f.Name] = struct{}{}
		v, present := raw[f.Name]
		name := prefix + f.Name
		switch f.Kind {
		case KindNumber:
			n, ok := toNumber(v)
			if !ok {
				if present {
					*changes = append(*changes, name+"(not numeric)")
				}
				out[f.Name] = float64(0)
				continue
			}
			if _, isFloat := v.(float64); !isFloat {
				*changes = append(*changes, name+"(coerced)")
			}
			out[f.Name] = n
		case KindArray:
			list, _ := v.([]any)
			items := make([]any, 0, len(list))
			for i, item := range list {
				obj, ok := item.(map[string]any)
				if !ok {
					*changes = append(*changes, fmt.Sprintf("%s[%d](not object)", name, i))
					continue
				}
				items = append(items, normalizeFields(f.Items, obj, fmt.Sprintf("%s[%d].", name, i), changes))
			}
			out[f.Name] = items
		default:
			switch t := v.(type) {
			case string:
				out[f.Name] = strings.TrimSpace(t)
			case nil:
				if present {
					*changes = append(*changes, name+"(null)")
				}
				out[f.Name] = ""
			case float64:
				out[f.Name] = strconv.FormatFloat(t, 'f', -1, 64)
				*changes = append(*changes, name+"(stringified)")
			default:
				out[f.Name] = fmt.Sprint(t)
				*changes = append(*changes, name+"(stringified)")
			}
		}
	}

	for k := range raw {
		if _, ok := known[k]; !ok {
			*changes = append(*changes, prefix+k+"(unknown)")
		}
	}
	return out
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return ParseAmount(t)
	default:
		return 0, false
	}
}

// ParseAmount parses money-like strings in either 1,234.56 or 1.234,56 notation,
// with an optional currency prefix.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
