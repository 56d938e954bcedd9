package rest

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// encodeParams serializes a parameter bag into a URL query string. Scalar
// values are formatted directly; everything else (filters, nested objects,
// slices) is serialized to its canonical JSON form before encoding.
func encodeParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	q := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			q.Set(key, v)
		case bool, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			q.Set(key, fmt.Sprint(v))
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to serialize query param %q: %w", key, err)
			}
			q.Set(key, string(data))
		}
	}
	return q.Encode(), nil
}
