package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FlexFloat decodes from a JSON number or a numeric string such as "59.99".
// Storefront forms post prices as strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw, err := unquoteNumber(data)
	if err != nil || raw == "" {
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt decodes from a JSON number or numeric string, truncating any fraction.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	raw, err := unquoteNumber(data)
	if err != nil || raw == "" {
		return err
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*n = FlexInt(v)
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", raw)
	}
	*n = FlexInt(int(v))
	return nil
}

func unquoteNumber(data []byte) (string, error) {
	if string(data) == "null" {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(data), nil
}

// FloatPtr converts an optional FlexFloat to *float64.
func (f *FlexFloat) FloatPtr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// IntPtr converts an optional FlexInt to *int.
func (n *FlexInt) IntPtr() *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}
