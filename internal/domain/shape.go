package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SeverityClass is the visual class a map region carries. Exactly one is
// active on a region after every render.
type SeverityClass string

const (
	Cod0 SeverityClass = "cod0" // baseline, no active warning
	Cod1 SeverityClass = "cod1"
	Cod2 SeverityClass = "cod2"
	Cod3 SeverityClass = "cod3"
)

// SeverityClasses lists every severity class, baseline first.
var SeverityClasses = []SeverityClass{Cod0, Cod1, Cod2, Cod3}

// IsSeverityClass reports whether token is one of the four severity classes.
func IsSeverityClass(token string) bool {
	for _, c := range SeverityClasses {
		if token == string(c) {
			return true
		}
	}
	return false
}

// AlertShape names a region and the ANM colour code of its warning.
type AlertShape struct {
	ID      string `json:"id"`
	Culoare string `json:"culoare"`
}

// Severity resolves the colour code to a severity class. The code is looked
// up verbatim: unknown, missing and padded codes (" 2") fall back to cod1.
func (s AlertShape) Severity() SeverityClass {
	switch s.Culoare {
	case "1":
		return Cod1
	case "2":
		return Cod2
	case "3":
		return Cod3
	default:
		return Cod1
	}
}

// UnmarshalJSON accepts id and culoare as JSON strings or numbers, since
// upstream sensors are inconsistent about quoting the colour code.
func (s *AlertShape) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Culoare json.RawMessage `json:"culoare"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode shape: %w", err)
	}
	id, err := scalarString(raw.ID)
	if err != nil {
		return fmt.Errorf("decode shape id: %w", err)
	}
	culoare, err := scalarString(raw.Culoare)
	if err != nil {
		return fmt.Errorf("decode shape culoare: %w", err)
	}
	s.ID = id
	s.Culoare = culoare
	return nil
}

// scalarString renders a JSON string or number as a Go string. Absent and
// null values yield "".
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return numberString(n), nil
	default:
		return "", fmt.Errorf("unsupported value %s", raw)
	}
}

// numberString formats a JSON number the way JavaScript's String(n) does,
// so 2.0 and 2e0 read as "2". Numbers outside float64 range keep their
// literal text.
func numberString(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
