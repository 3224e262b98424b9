package db

import (
	"fmt"
)

// Provider resolves assets, either from its own containers or through its
// dependencies.
type Provider interface {
	// Dependency returns the provider registered under index.
	Dependency(index uint16) (Provider, error)

	// The getters below load directly from this provider, without
	// indirection.
	Texture(id LocalId) (*Texture, error)
	Class(id LocalId) (*Class, error)
	Model(id LocalId) (*Model, error)
	Animation(id LocalId) (*Animation, error)
	Sound(id LocalId) (*Sound, error)
	Sequence(id LocalId) (*Sequence, error)
}

// Unsupported implements every Provider method by failing with
// ErrUnsupported. Embed it and override what you actually serve.
type Unsupported struct{}

func unsupported(kind Kind) error {
	return fmt.Errorf("%w: provider can't load %s assets directly", ErrUnsupported, kind)
}

func (Unsupported) Dependency(index uint16) (Provider, error) {
	return nil, fmt.Errorf("%w: provider has no dependencies", ErrUnsupported)
}

func (Unsupported) Texture(id LocalId) (*Texture, error) {
	return nil, unsupported(KindTexture)
}

func (Unsupported) Class(id LocalId) (*Class, error) {
	return nil, unsupported(KindClass)
}

func (Unsupported) Model(id LocalId) (*Model, error) {
	return nil, unsupported(KindModel)
}

func (Unsupported) Animation(id LocalId) (*Animation, error) {
	return nil, unsupported(KindAnimation)
}

func (Unsupported) Sound(id LocalId) (*Sound, error) {
	return nil, unsupported(KindSound)
}

func (Unsupported) Sequence(id LocalId) (*Sequence, error) {
	return nil, unsupported(KindSequence)
}

var _ Provider = Unsupported{}

// resolve loads from p when the reference is local, otherwise from the
// dependency it names. It never hops more than once.
func resolve[T any](p Provider, ref Reference, get func(Provider, LocalId) (T, error)) (T, error) {
	if ref.DependencyIndex == 0 {
		return get(p, ref.LocalId)
	}

	dependency, err := p.Dependency(ref.DependencyIndex)
	if err != nil {
		var empty T
		return empty, err
	}

	return get(dependency, ref.LocalId)
}

func ResolveTexture(p Provider, ref Reference) (*Texture, error) {
	return resolve(p, ref, Provider.Texture)
}

func ResolveClass(p Provider, ref Reference) (*Class, error) {
	return resolve(p, ref, Provider.Class)
}

func ResolveModel(p Provider, ref Reference) (*Model, error) {
	return resolve(p, ref, Provider.Model)
}

func ResolveAnimation(p Provider, ref Reference) (*Animation, error) {
	return resolve(p, ref, Provider.Animation)
}

func ResolveSound(p Provider, ref Reference) (*Sound, error) {
	return resolve(p, ref, Provider.Sound)
}

func ResolveSequence(p Provider, ref Reference) (*Sequence, error) {
	return resolve(p, ref, Provider.Sequence)
}

// Resolve is ResolveTexture and friends for a kind only known at runtime.
func Resolve(p Provider, kind Kind, ref Reference) (Asset, error) {
	switch kind {
	case KindTexture:
		return asAsset(ResolveTexture(p, ref))
	case KindClass:
		return asAsset(ResolveClass(p, ref))
	case KindModel:
		return asAsset(ResolveModel(p, ref))
	case KindAnimation:
		return asAsset(ResolveAnimation(p, ref))
	case KindSound:
		return asAsset(ResolveSound(p, ref))
	case KindSequence:
		return asAsset(ResolveSequence(p, ref))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
}

// Avoids handing out a non-nil interface that wraps a nil pointer.
func asAsset[T Asset](asset T, err error) (Asset, error) {
	if err != nil {
		return nil, err
	}
	return asset, nil
}
