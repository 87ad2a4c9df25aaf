package segmentweaver

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Select evaluates a JSONPath expression against a JSON document and decodes
// every matching object as a segment. Matches that are arrays contribute
// each of their elements, so "$[0].content" selects the content runs of the
// first segment. Scalar matches are an error.
//
// Selected subtrees render independently, which is how callers get partial
// results out of a document that fails strict rendering as a whole.
func Select(data []byte, path string) ([]Segment, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var out []Segment
	for _, match := range x.Get(root) {
		items := []any{match}
		if list, ok := match.([]any); ok {
			items = list
		}
		for _, item := range items {
			if _, ok := item.(map[string]any); !ok {
				return nil, fmt.Errorf("jsonpath '%s' matched %T, want a segment object", path, item)
			}
			raw, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			var seg Segment
			if err := json.Unmarshal(raw, &seg); err != nil {
				return nil, fmt.Errorf("decode selected segment: %w", err)
			}
			out = append(out, seg)
		}
	}
	return out, nil
}
