package payment

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// decodeFlatFields normalizes a webhook body into a flat map of top-level
// scalar fields, keeping each value exactly as transmitted (numbers are
// not re-parsed or re-rounded). Nested objects and arrays are dropped:
// they are excluded from signing input by the provider protocols.
//
// The encoding is chosen from Content-Type, with fallback attempts because
// some providers send bodies with a missing or wrong header: JSON first,
// then form-urlencoded, then base64-wrapped JSON.
func decodeFlatFields(body []byte, contentType string) (map[string]string, error) {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "application/json"):
		if fields, err := decodeJSONFields(body); err == nil {
			return fields, nil
		}
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		if fields, err := decodeFormFields(body); err == nil {
			return fields, nil
		}
	}

	if fields, err := decodeJSONFields(body); err == nil {
		return fields, nil
	}
	if wrapped, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body))); err == nil {
		if fields, err := decodeJSONFields(wrapped); err == nil {
			return fields, nil
		}
	}
	if fields, err := decodeFormFields(body); err == nil {
		return fields, nil
	}

	return nil, fmt.Errorf("unrecognized callback body encoding")
}

func decodeJSONFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprintf("%t", val)
		case nil:
			// omitted from the flat set, matching signing rules
		default:
			// nested object or array, excluded
		}
	}
	return fields, nil
}

func decodeFormFields(body []byte) (map[string]string, error) {
	if !bytes.Contains(body, []byte("=")) {
		return nil, fmt.Errorf("not a form body")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty form body")
	}

	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, nil
}
