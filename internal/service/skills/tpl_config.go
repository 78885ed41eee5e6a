package skills

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// TplConfig holds the per-invocation values of a skill's config schema, in
// the form {"<key>": {"value": <v>}}. A bare {"<key>": <v>} is accepted too.
type TplConfig struct {
	raw string
}

func ParseTplConfig(raw []byte) (TplConfig, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return TplConfig{}, nil
	}
	if !gjson.Valid(trimmed) {
		return TplConfig{}, fmt.Errorf("invalid tpl config: not valid json")
	}
	if !gjson.Parse(trimmed).IsObject() {
		return TplConfig{}, fmt.Errorf("invalid tpl config: expected an object")
	}
	return TplConfig{raw: trimmed}, nil
}

// TplConfigFromValues builds a config from plain key/value pairs.
func TplConfigFromValues(values map[string]any) (TplConfig, error) {
	if len(values) == 0 {
		return TplConfig{}, nil
	}
	wrapped := make(map[string]map[string]any, len(values))
	for k, v := range values {
		wrapped[k] = map[string]any{"value": v}
	}
	data, err := json.Marshal(wrapped)
	if err != nil {
		return TplConfig{}, fmt.Errorf("failed to marshal tpl config: %w", err)
	}
	return TplConfig{raw: string(data)}, nil
}

func (c TplConfig) IsEmpty() bool {
	return c.raw == ""
}

func (c TplConfig) MarshalJSON() ([]byte, error) {
	if c.raw == "" {
		return []byte("{}"), nil
	}
	return []byte(c.raw), nil
}

func (c *TplConfig) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTplConfig(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c TplConfig) lookup(key string) gjson.Result {
	if c.raw == "" {
		return gjson.Result{}
	}
	r := gjson.Get(c.raw, gjson.Escape(key))
	if r.IsObject() {
		return r.Get("value")
	}
	return r
}

// String returns the value for key, or def when it is missing or empty.
func (c TplConfig) String(key string, def string) string {
	r := c.lookup(key)
	if !r.Exists() || r.Type == gjson.Null {
		return def
	}
	if v := r.String(); v != "" {
		return v
	}
	return def
}

// Float returns the numeric value for key, or def when it is missing, null
// or not a number. An explicit zero is returned as zero.
func (c TplConfig) Float(key string, def float64) float64 {
	r := c.lookup(key)
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	default:
		return def
	}
}
