package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexInt is an integer id the backend sends either as a JSON number or as
// a quoted string. null and "" decode to zero.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw, err := flexRaw(data)
	if err != nil || raw == "" {
		*f = 0
		return err
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = FlexInt(v)
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) {
		return fmt.Errorf("invalid integer value %q", raw)
	}
	if v < -(1<<63) || v >= 1<<63 {
		return fmt.Errorf("integer value %q out of range", raw)
	}

	*f = FlexInt(v)
	return nil
}

func (f FlexInt) Int64() int64 {
	return int64(f)
}

// FlexFloat is a day count that may arrive as a number or a string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw, err := flexRaw(data)
	if err != nil || raw == "" {
		*f = 0
		return err
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number value %q", raw)
	}

	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 {
	return float64(f)
}

func flexRaw(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}

	return string(data), nil
}
