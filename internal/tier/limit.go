package tier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Limit is a numeric cap that can be explicitly unbounded.
//
// Unbounded is a dedicated sentinel rather than a large finite number, so
// comparisons against it are always true and rendering can show "∞".
type Limit int64

// Unlimited marks a cap with no bound.
const Unlimited Limit = -1

// unlimitedJSON is the wire form of an unbounded cap.
const unlimitedJSON = "∞"

// IsUnlimited reports whether the cap has no bound.
func (l Limit) IsUnlimited() bool { return l < 0 }

// Allows reports whether one more action is permitted at the given usage.
// A zero cap means "never allowed", not "unlimited".
func (l Limit) Allows(used int) bool {
	if l.IsUnlimited() {
		return true
	}
	return int64(used) < int64(l)
}

// String renders the cap, using "∞" for unbounded.
func (l Limit) String() string {
	if l.IsUnlimited() {
		return unlimitedJSON
	}
	return strconv.FormatInt(int64(l), 10)
}

// MarshalJSON encodes unbounded caps as the string "∞" and bounded caps as numbers.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return json.Marshal(unlimitedJSON)
	}
	return json.Marshal(int64(l))
}

// UnmarshalJSON accepts either a number or the string "∞".
func (l *Limit) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == `"`+unlimitedJSON+`"` {
		*l = Unlimited
		return nil
	}
	var n int64
	if errUnmarshal := json.Unmarshal(data, &n); errUnmarshal != nil {
		return fmt.Errorf("tier: invalid limit %s", trimmed)
	}
	if n < 0 {
		*l = Unlimited
		return nil
	}
	*l = Limit(n)
	return nil
}
