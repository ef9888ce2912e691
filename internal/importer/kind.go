package importer

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKind = errors.New("unknown importer kind")

// Kind names one log grammar.
type Kind int

const (
	KindNone Kind = iota - 1
	KindJSON
	KindCanonical
	KindPlatform
	KindRendered
	KindBracket
	KindFoundry
)

var kindNames = [...]string{
	KindJSON:      "json",
	KindCanonical: "canonical",
	KindPlatform:  "platform",
	KindRendered:  "rendered",
	KindBracket:   "bracket",
	KindFoundry:   "foundry",
}

// DefaultOrder is the sniffing order used when none is configured. The
// canonical grammar comes before the foreign chat formats so that text the
// exporter produced is always read back by its own importer.
var DefaultOrder = []Kind{KindJSON, KindCanonical, KindPlatform, KindRendered, KindBracket, KindFoundry}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "none"
	}
	return kindNames[k]
}

func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == key {
			return Kind(i), nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	seen := make(map[Kind]struct{}, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("duplicate importer: %s", k)
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
