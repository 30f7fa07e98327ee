package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Upstream payloads are loosely typed: the same field can arrive as a JSON
// number, a numeric string, a JSON array, or a JSON-encoded array inside a
// string. These types decode each shape into an explicit variant at the
// boundary so the normalizers only ever switch on a Kind.

// NumberKind tags the shape a Number arrived in
type NumberKind uint8

const (
	NumberAbsent NumberKind = iota
	NumberNumeric
	NumberString
	NumberInvalid
)

// Number is a JSON number, a numeric string, or neither
type Number struct {
	Kind  NumberKind
	Value float64
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*n = Number{Kind: NumberAbsent}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = Number{Kind: NumberInvalid}
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = Number{Kind: NumberInvalid}
			return nil
		}
		*n = Number{Kind: NumberString, Value: v}
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			*n = Number{Kind: NumberInvalid}
			return nil
		}
		*n = Number{Kind: NumberNumeric, Value: v}
	}
	return nil
}

// Float returns the parsed value and whether one was present
func (n Number) Float() (float64, bool) {
	switch n.Kind {
	case NumberNumeric, NumberString:
		return n.Value, true
	default:
		return 0, false
	}
}

// ListKind tags the shape a list field arrived in
type ListKind uint8

const (
	ListAbsent ListKind = iota
	ListArray
	ListEncoded
	ListMalformed
)

// StringList decodes a JSON array of strings or a string holding one
type StringList struct {
	Kind   ListKind
	Values []string
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	kind, raw := unwrapList(data)
	*l = StringList{Kind: kind}
	if kind == ListAbsent || kind == ListMalformed {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		l.Kind = ListMalformed
		return nil
	}
	l.Values = make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			l.Values = append(l.Values, s)
			continue
		}
		l.Values = append(l.Values, strings.Trim(string(item), `"`))
	}
	return nil
}

// PriceList decodes a JSON array of numbers or numeric strings, or a string
// holding one
type PriceList struct {
	Kind   ListKind
	Values []float64
}

func (l *PriceList) UnmarshalJSON(data []byte) error {
	kind, raw := unwrapList(data)
	*l = PriceList{Kind: kind}
	if kind == ListAbsent || kind == ListMalformed {
		return nil
	}

	var items []Number
	if err := json.Unmarshal(raw, &items); err != nil {
		l.Kind = ListMalformed
		return nil
	}
	l.Values = make([]float64, 0, len(items))
	for _, item := range items {
		v, ok := item.Float()
		if !ok {
			// one bad element poisons the index alignment with outcomes
			l.Kind = ListMalformed
			l.Values = nil
			return nil
		}
		l.Values = append(l.Values, v)
	}
	return nil
}

// unwrapList classifies data and returns the bytes of the inner JSON array
func unwrapList(data []byte) (ListKind, []byte) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return ListAbsent, nil
	case data[0] == '[':
		return ListArray, data
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ListMalformed, nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return ListAbsent, nil
		}
		if !strings.HasPrefix(s, "[") {
			return ListMalformed, nil
		}
		return ListEncoded, []byte(s)
	default:
		return ListMalformed, nil
	}
}
