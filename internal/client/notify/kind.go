package notify

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of notification types. Switches over Kind are
// expected to be exhaustive; add a constant here and every dispatch site
// must handle it.
type Kind int

const (
	KindNewPerception Kind = iota + 1
	KindNewMatch
	KindNewMessage
	KindProfileView
	KindSystem
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{KindNewPerception, KindNewMatch, KindNewMessage, KindProfileView, KindSystem}

func (k Kind) String() string {
	switch k {
	case KindNewPerception:
		return "NEW_PERCEPTION"
	case KindNewMatch:
		return "NEW_MATCH"
	case KindNewMessage:
		return "NEW_MESSAGE"
	case KindProfileView:
		return "PROFILE_VIEW"
	case KindSystem:
		return "SYSTEM"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindNewPerception && k <= KindSystem
}

// ParseKind maps the wire name (e.g. "NEW_MESSAGE") back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown notification kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("marshal %s: invalid kind", k)
	}
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
