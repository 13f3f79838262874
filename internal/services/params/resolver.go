package params

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Result is a validated parameter set. Valid is always true: corrections
// are reported as warnings instead of rejecting the input.
type Result struct {
	Params   map[string]any `json:"params"`
	Warnings []string       `json:"warnings"`
	Valid    bool           `json:"valid"`
}

// Resolve layers schema defaults, the named preset and overrides, later
// layers winning key by key. Nil values never overwrite. An unknown preset
// id is ignored.
func (c *Catalog) Resolve(presetID string, overrides map[string]any) map[string]any {
	out := c.Defaults()
	if p, ok := c.Preset(presetID); ok {
		overlay(out, p.Params)
	}
	overlay(out, overrides)
	return out
}

// ResolveAndValidate is Resolve followed by Validate.
func (c *Catalog) ResolveAndValidate(presetID string, overrides map[string]any) Result {
	return c.Validate(c.Resolve(presetID, overrides))
}

// Validate clamps numbers into [min, max], resets unknown select values and
// uncoercible values to the default, and emits one warning per correction.
func (c *Catalog) Validate(in map[string]any) Result {
	out := copyMap(in)
	warnings := []string{}

	for _, item := range c.schema {
		raw, present := out[item.Key]
		if !present || raw == nil {
			continue
		}

		switch item.Type {
		case TypeNumber:
			v, ok := toFloat(raw)
			if !ok {
				out[item.Key] = item.Default
				warnings = append(warnings, fmt.Sprintf("%q is not a number, using default: %v.", item.Label, item.Default))
				continue
			}
			clamped := v
			if item.Min != nil && clamped < *item.Min {
				clamped = *item.Min
			}
			if item.Max != nil && clamped > *item.Max {
				clamped = *item.Max
			}
			if clamped != v {
				warnings = append(warnings, fmt.Sprintf("%q clamped to %v.", item.Label, clamped))
			}
			out[item.Key] = clamped

		case TypeSelect:
			s, ok := raw.(string)
			if !ok || !item.hasOption(s) {
				out[item.Key] = item.Default
				warnings = append(warnings, fmt.Sprintf("%q is invalid, using default: %v.", item.Label, item.Default))
			}

		case TypeBoolean:
			b, ok := toBool(raw)
			if !ok {
				out[item.Key] = item.Default
				warnings = append(warnings, fmt.Sprintf("%q is not a boolean, using default: %v.", item.Label, item.Default))
				continue
			}
			out[item.Key] = b
		}
	}

	if out["bosBreakMode"] == "wick" {
		warnings = append(warnings, "BOS Break Mode = wick produces noisier signals.")
	}
	return Result{Params: out, Warnings: warnings, Valid: true}
}

func overlay(dst, src map[string]any) {
	for k, v := range src {
		if v != nil {
			dst[k] = v
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		p, err := strconv.ParseBool(b)
		return p, err == nil
	default:
		return false, false
	}
}
