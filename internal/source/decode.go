// SPDX-License-Identifier: Apache-2.0

package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

var errNoRecordList = errors.New("payload has no list of records")

// decodeRecords accepts either a bare JSON array of records or an object
// whose first array-valued field, in document order, holds them.
func decodeRecords(r io.Reader) ([]dataset.SchoolRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	switch tok {
	case json.Delim('['):
		return decodeArray(dec)
	case json.Delim('{'):
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("json decode key: %w", err)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("json decode value: %w", err)
			}
			trimmed := bytes.TrimSpace(raw)
			if len(trimmed) == 0 || trimmed[0] != '[' {
				continue
			}
			inner := json.NewDecoder(bytes.NewReader(trimmed))
			inner.UseNumber()
			if _, err := inner.Token(); err != nil {
				return nil, fmt.Errorf("json decode: %w", err)
			}
			return decodeArray(inner)
		}
		return nil, errNoRecordList
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %v", errNoRecordList, tok)
	}
}

// decodeArray reads the elements of an array whose opening bracket has
// already been consumed. Non-object elements are skipped.
func decodeArray(dec *json.Decoder) ([]dataset.SchoolRecord, error) {
	var records []dataset.SchoolRecord
	for dec.More() {
		var item any
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("json decode record %d: %w", len(records), err)
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, toRecord(obj))
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return records, nil
}

// toRecord maps an object onto a SchoolRecord. Keys match after trimming
// whitespace and a byte order mark, ignoring case.
func toRecord(obj map[string]any) dataset.SchoolRecord {
	get := func(field string) string {
		if v, ok := obj[field]; ok {
			return asString(v)
		}
		for k, v := range obj {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(k, "\ufeff")), field) {
				return asString(v)
			}
		}
		return ""
	}
	return dataset.SchoolRecord{
		MunicipalityCode: get(dataset.FieldMunicipality),
		SchoolCode:       get(dataset.FieldSchool),
		Dependency:       get(dataset.FieldDependency),
		Internet:         get(dataset.FieldInternet),
		Status:           get(dataset.FieldStatus),
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
