package db

import (
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

const RecordAnimation srsc.RecordType = 0x0300

const AnimationLooping = 0x01

type Keyframe struct {
	Time        float32
	Node        uint16
	Translation Vec3
	Rotation    Quat
}

type Animation struct {
	assetBase

	Name      string
	Flags     uint32
	Duration  float32
	Keyframes []Keyframe
}

func (a *Animation) Kind() Kind {
	return KindAnimation
}

func (a *Animation) Looping() bool {
	return a.Flags&AnimationLooping != 0
}

// NodeKeyframes returns the keyframes that move node, in file order.
func (a *Animation) NodeKeyframes(node uint16) []Keyframe {
	var result []Keyframe
	for _, keyframe := range a.Keyframes {
		if keyframe.Node == node {
			result = append(result, keyframe)
		}
	}
	return result
}

func (d *Database) loadAnimation(file *srsc.File, id LocalId) (*Animation, error) {
	index, ok := file.Find(RecordAnimation, id)
	if !ok {
		return nil, notFound(KindAnimation, id)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	animation := Animation{
		assetBase: assetBase{db: d, id: id},
	}

	animation.Name, err = p.GetString()
	if err != nil {
		return nil, err
	}

	var count uint32
	err = p.Get(&animation.Flags, &animation.Duration, &count)
	if err != nil {
		return nil, err
	}

	// Each keyframe is 34 bytes
	if int64(count)*34 > int64(p.Len()) {
		return nil, fmt.Errorf("%w: %d keyframes do not fit in the record", srsc.ErrIO, count)
	}

	animation.Keyframes = make([]Keyframe, count)
	for i := range animation.Keyframes {
		keyframe := &animation.Keyframes[i]
		err = p.Get(&keyframe.Time, &keyframe.Node, &keyframe.Translation, &keyframe.Rotation)
		if err != nil {
			return nil, err
		}
	}

	return &animation, nil
}
