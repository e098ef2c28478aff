package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind says how a day-off period repeats. The zero value is None.
type Kind int

const (
	None Kind = iota
	Weekly
	Monthly
	Yearly
	// Invalid marks a stored record whose recurrence could not be decoded.
	// Validation rejects it and Expand refuses it.
	Invalid
)

var ErrInvalidKind = errors.New("invalid recurrence type")

var kindNames = map[Kind]string{
	None:    "",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
	Invalid: "invalid",
}

var kindFromName = map[string]Kind{
	"weekly":  Weekly,
	"monthly": Monthly,
	"yearly":  Yearly,
}

// ParseKind parses a recurrence type name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k, ok := kindFromName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Invalid, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// FromFields collapses the boundary representation (a recurring flag plus a
// nullable type name) into a Kind. A recurring flag without a type, or a type
// without the flag, is rejected.
func FromFields(isRecurring bool, recurrenceType *string) (Kind, error) {
	if !isRecurring {
		if recurrenceType != nil && strings.TrimSpace(*recurrenceType) != "" {
			return Invalid, fmt.Errorf("%w: type %q set on a non-recurring period", ErrInvalidKind, *recurrenceType)
		}
		return None, nil
	}
	if recurrenceType == nil || strings.TrimSpace(*recurrenceType) == "" {
		return Invalid, fmt.Errorf("%w: recurring period needs a type", ErrInvalidKind)
	}
	return ParseKind(*recurrenceType)
}

// Fields is the inverse of FromFields.
func (k Kind) Fields() (bool, *string) {
	if k == None {
		return false, nil
	}
	name := k.String()
	return true, &name
}

// IsRecurring reports whether k repeats.
func (k Kind) IsRecurring() bool {
	return k == Weekly || k == Monthly || k == Yearly
}

// Valid reports whether k is one of None, Weekly, Monthly or Yearly.
func (k Kind) Valid() bool {
	return k == None || k.IsRecurring()
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Describe returns a human-readable description of the recurrence.
func (k Kind) Describe() string {
	switch k {
	case None:
		return "Does not repeat"
	case Weekly:
		return "Repeats weekly"
	case Monthly:
		return "Repeats monthly"
	case Yearly:
		return "Repeats yearly"
	}
	return ""
}

// MarshalJSON encodes None as null and the others by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	if k == None {
		return []byte("null"), nil
	}
	return json.Marshal(k.String())
}
