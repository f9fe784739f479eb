package joints

import (
	"fmt"
	"strings"
)

// Domain identifies which physical quantity a scalar value represents.
type Domain int

const (
	Unset Domain = iota
	Position
	Speed
	Effort
	Raw
	Acceleration
)

var domainNames = [...]string{
	Unset:        "unset",
	Position:     "position",
	Speed:        "speed",
	Effort:       "effort",
	Raw:          "raw",
	Acceleration: "acceleration",
}

func (d Domain) String() string {
	if d < 0 || int(d) >= len(domainNames) {
		return fmt.Sprintf("domain(%d)", int(d))
	}
	return domainNames[d]
}

// Valid reports whether d names a usable quantity.
func (d Domain) Valid() bool {
	return d > Unset && int(d) < len(domainNames)
}

// Source returns the domain a derived value of d is differentiated from.
// Speed derives from position, acceleration from speed.
func (d Domain) Source() (Domain, bool) {
	switch d {
	case Speed:
		return Position, true
	case Acceleration:
		return Speed, true
	}
	return Unset, false
}

// ParseDomain accepts the lower-case names returned by String.
func ParseDomain(s string) (Domain, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d, n := range domainNames {
		if n == name {
			return Domain(d), nil
		}
	}
	return Unset, fmt.Errorf("joints: unknown domain %q", s)
}

// Domains lists all usable domains.
func Domains() []Domain {
	return []Domain{Position, Speed, Effort, Raw, Acceleration}
}

func (d Domain) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Domain) UnmarshalText(text []byte) error {
	v, err := ParseDomain(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
