package job

import (
	"fmt"
	"strconv"
	"strings"
)

// Prop is a single key=value job property.
type Prop struct {
	Key   string
	Value string
}

// Props is an ordered job property list. Order is preserved from the
// command line but carries no meaning; duplicate keys keep the last value
// at parse time in the consuming job.
type Props []Prop

// ParseArgs converts command-line arguments of the form "key=value" into
// a property list. A bare "key" with no "=" is recorded with an empty
// value, which boolean properties interpret as true.
func ParseArgs(args []string) Props {
	props := make(Props, 0, len(args))
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		props = append(props, Prop{Key: key, Value: value})
	}
	return props
}

// Bool parses a boolean property value. An empty value means true, so
// that a bare flag like "passive" enables the behavior.
func (p Prop) Bool() (bool, error) {
	if p.Value == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(p.Value)
	if err != nil {
		return false, &MalformedValueError{Key: p.Key, Err: err}
	}
	return v, nil
}

// Uint64 parses an unsigned integer property value.
func (p Prop) Uint64() (uint64, error) {
	v, err := strconv.ParseUint(p.Value, 10, 64)
	if err != nil {
		return 0, &MalformedValueError{Key: p.Key, Err: err}
	}
	return v, nil
}

// Uint32 parses an unsigned 32-bit integer property value.
func (p Prop) Uint32() (uint32, error) {
	v, err := strconv.ParseUint(p.Value, 10, 32)
	if err != nil {
		return 0, &MalformedValueError{Key: p.Key, Err: err}
	}
	return uint32(v), nil
}

// String returns the property in key=value form.
func (p Prop) String() string {
	if p.Value == "" {
		return p.Key
	}
	return fmt.Sprintf("%s=%s", p.Key, p.Value)
}
