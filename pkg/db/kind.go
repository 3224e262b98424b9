package db

import (
	"fmt"
	"strings"
)

// Kind is one of the closed set of asset categories.
type Kind uint8

const (
	KindTexture Kind = iota
	KindClass
	KindModel
	KindAnimation
	KindSound
	KindSequence

	numKinds
)

type kindInfo struct {
	name string
	// Sibling container of the definition file
	extension string
}

var kinds = [numKinds]kindInfo{
	KindTexture:   {"texture", ".txd"},
	KindClass:     {"class", ".odb"},
	KindModel:     {"model", ".mod"},
	KindAnimation: {"animation", ".adb"},
	KindSound:     {"sound", ".sdb"},
	KindSequence:  {"sequence", ".ssd"},
}

func Kinds() []Kind {
	result := make([]Kind, 0, numKinds)
	for kind := Kind(0); kind < numKinds; kind++ {
		result = append(result, kind)
	}
	return result
}

func (k Kind) Valid() bool {
	return k < numKinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", k)
	}
	return kinds[k].name
}

func (k Kind) Extension() string {
	if !k.Valid() {
		return ""
	}
	return kinds[k].extension
}

func ParseKind(name string) (Kind, error) {
	for kind, info := range kinds {
		if strings.EqualFold(info.name, name) {
			return Kind(kind), nil
		}
	}

	return 0, fmt.Errorf("%w: unknown asset kind %q", ErrUnsupported, name)
}
