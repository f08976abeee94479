package zones

import "github.com/spf13/cast"

// AttributeMap is a convenience wrapper for pulling typed values out of a
// loosely structured attribute map, such as a decoded JSON object.
type AttributeMap map[string]interface{}

// Has returns whether the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns a string value by name, or empty when absent.
func (am AttributeMap) String(name string) string {
	if x, has := am[name]; has {
		return cast.ToString(x)
	}
	return ""
}

// Bool returns a bool value by name, or the given default when absent.
func (am AttributeMap) Bool(name string, def bool) bool {
	if x, has := am[name]; has {
		return cast.ToBool(x)
	}
	return def
}

// Float64 returns a float64 value by name, or the given default when absent.
// JSON numbers decode as float64, so this covers numeric settings.
func (am AttributeMap) Float64(name string, def float64) float64 {
	if x, has := am[name]; has {
		return cast.ToFloat64(x)
	}
	return def
}

// Int returns an int value by name, or the given default when absent.
func (am AttributeMap) Int(name string, def int) int {
	if x, has := am[name]; has {
		return cast.ToInt(x)
	}
	return def
}

// StringSlice returns a string slice value by name, or nil when absent.
func (am AttributeMap) StringSlice(name string) []string {
	if x, has := am[name]; has {
		return cast.ToStringSlice(x)
	}
	return nil
}
