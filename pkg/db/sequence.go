package db

import (
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

const RecordSequence srsc.RecordType = 0x0500

type ActionType uint16

const (
	ActionTransform ActionType = iota
	ActionStartAnimation
	ActionPlaySound
)

type Interpolation uint16

const (
	InterpolationNone Interpolation = iota
	InterpolationLinearLinear
	InterpolationLinearSpline
	InterpolationSplineSpline
)

type Action struct {
	Type       ActionType
	TimeOffset float32

	// ActionTransform
	Rotation      Quat
	Position      Vec3
	Interpolation Interpolation

	// ActionStartAnimation
	Channel         uint16
	Animation       Reference
	TransitionTime  float32
	Speed           float32
	RootTranslation uint32
}

type Actor struct {
	Name          string
	ActorId       uint32
	LevelObjectId uint32
	Actions       []Action
}

type Sequence struct {
	assetBase

	Name   string
	Actors []Actor
}

func (s *Sequence) Kind() Kind {
	return KindSequence
}

func readAction(p *srsc.Buffer) (Action, error) {
	action := Action{}
	err := p.Get(&action.Type, &action.TimeOffset)
	if err != nil {
		return action, err
	}

	switch action.Type {
	case ActionTransform:
		err = p.Get(&action.Rotation, &action.Position)
		if err != nil {
			return action, err
		}

		err = p.Skip(4)
		if err != nil {
			return action, err
		}

		err = p.Get(&action.Interpolation)
		if err != nil {
			return action, err
		}

		if action.Interpolation > InterpolationSplineSpline {
			return action, fmt.Errorf("%w: interpolation type %d", srsc.ErrCorrupt, action.Interpolation)
		}

		err = p.Skip(2)
	case ActionStartAnimation:
		err = p.Get(&action.Channel)
		if err != nil {
			return action, err
		}

		action.Animation, err = ReadReference(p)
		if err != nil {
			return action, err
		}

		err = p.Skip(4)
		if err != nil {
			return action, err
		}

		err = p.Get(&action.TransitionTime, &action.Speed, &action.RootTranslation)
	default:
		// No way to know where it ends
		return action, fmt.Errorf("%w: unknown action type %d", srsc.ErrCorrupt, action.Type)
	}

	return action, err
}

func readActor(p *srsc.Buffer) (Actor, error) {
	actor := Actor{}

	var err error
	actor.Name, err = p.GetString()
	if err != nil {
		return actor, err
	}

	err = p.Get(&actor.ActorId)
	if err != nil {
		return actor, err
	}

	err = p.Skip(8)
	if err != nil {
		return actor, err
	}

	var actionCount uint32
	err = p.Get(&actor.LevelObjectId, &actionCount)
	if err != nil {
		return actor, err
	}

	for i := uint32(0); i < actionCount; i++ {
		action, err := readAction(p)
		if err != nil {
			return actor, fmt.Errorf("actor %s: %w", actor.Name, err)
		}
		actor.Actions = append(actor.Actions, action)
	}

	return actor, nil
}

func (d *Database) loadSequence(file *srsc.File, id LocalId) (*Sequence, error) {
	index, ok := file.Find(RecordSequence, id)
	if !ok {
		return nil, notFound(KindSequence, id)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	sequence := Sequence{
		assetBase: assetBase{db: d, id: id},
	}

	sequence.Name, err = p.GetString()
	if err != nil {
		return nil, err
	}

	err = p.Skip(12)
	if err != nil {
		return nil, err
	}

	var actorCount uint32
	err = p.Get(&actorCount)
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < actorCount; i++ {
		actor, err := readActor(&p)
		if err != nil {
			return nil, err
		}
		sequence.Actors = append(sequence.Actors, actor)
	}

	return &sequence, nil
}
