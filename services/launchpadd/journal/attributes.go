package journal

import (
	"encoding/json"
	"fmt"
)

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode event attributes: %w", err)
	}
	return string(raw), nil
}

func decodeAttributes(raw string) (map[string]string, error) {
	attrs := map[string]string{}
	if raw == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("decode event attributes: %w", err)
	}
	return attrs, nil
}
