package db

import (
	"errors"
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

var (
	// Files that can't be opened or read, corrupt containers
	ErrIO = fmt.Errorf("i/o error")
	// Versions we can't read, kinds a provider does not serve
	ErrUnsupported = fmt.Errorf("unsupported")
	// Unknown dependency indices and local ids, missing containers
	ErrNotFound = fmt.Errorf("not found")
	// Definition file grammar and dependency table violations
	ErrMalformed = fmt.Errorf("malformed database definition")
)

// wrapContainer tags container failures so they satisfy errors.Is(err, ErrIO).
func wrapContainer(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrIO) {
		return err
	}

	if errors.Is(err, srsc.ErrIO) || errors.Is(err, srsc.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return err
}

func notFound(kind Kind, id LocalId) error {
	return fmt.Errorf("%w: no %s with id %d", ErrNotFound, kind, id)
}
