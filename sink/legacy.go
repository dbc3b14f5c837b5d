package sink

import (
	"encoding/json"
	"math"

	"github.com/webforms/sheetsink/httpx"
)

// ParseLegacyValues decodes the pre-normalizer "values" field, which is
// either an array of row objects (append mode) or an array of
// [row, col, value] triples (cell-update mode). Exactly one of the two
// returns is non-nil on success.
func ParseLegacyValues(raw json.RawMessage) (rows []map[string]any, updates []CellUpdate, err error) {
	var objects []map[string]any
	if e := json.Unmarshal(raw, &objects); e == nil && len(objects) > 0 {
		return objects, nil, nil
	}

	var triples [][]any
	if e := json.Unmarshal(raw, &triples); e != nil || len(triples) == 0 {
		return nil, nil, httpx.Validation("values must be row objects or [row, col, value] triples", nil)
	}

	updates = make([]CellUpdate, len(triples))
	for i, t := range triples {
		if len(t) != 3 {
			return nil, nil, httpx.Validation("cell updates must be [row, col, value] triples", nil)
		}
		row, rowOK := cellIndex(t[0])
		col, colOK := cellIndex(t[1])
		if !rowOK || !colOK {
			return nil, nil, httpx.Validation("cell row and col must be non-negative integers", nil)
		}
		updates[i] = CellUpdate{Row: row, Col: col, Value: t[2]}
	}
	return nil, updates, nil
}

func cellIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
