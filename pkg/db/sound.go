package db

import (
	"fmt"
	"time"

	"github.com/cfoust/odb/pkg/srsc"
)

const RecordSound srsc.RecordType = 0x0400

const SoundCompressed = 0x01

type SoundHeader struct {
	Flags      uint32
	Channels   uint16
	Bits       uint16
	SampleRate uint32
	Volume     uint8
	Dropoff    uint8
	Priority   uint8
	_          uint8
}

type Sound struct {
	assetBase
	SoundHeader

	Name    string
	Samples []byte
}

func (s *Sound) Kind() Kind {
	return KindSound
}

func (s *Sound) Duration() time.Duration {
	frameSize := int(s.Channels) * int(s.Bits) / 8
	if frameSize == 0 || s.SampleRate == 0 {
		return 0
	}

	frames := len(s.Samples) / frameSize
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

func (d *Database) loadSound(file *srsc.File, id LocalId) (*Sound, error) {
	index, ok := file.Find(RecordSound, id)
	if !ok {
		return nil, notFound(KindSound, id)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	sound := Sound{
		assetBase: assetBase{db: d, id: id},
	}

	sound.Name, err = p.GetString()
	if err != nil {
		return nil, err
	}

	err = p.Get(&sound.SoundHeader)
	if err != nil {
		return nil, err
	}

	if sound.Channels == 0 || sound.Channels > 2 {
		return nil, fmt.Errorf("%w: sound %s has %d channels", ErrUnsupported, sound.Name, sound.Channels)
	}

	if sound.Flags&SoundCompressed != 0 {
		samples, err := p.GetCompressed()
		if err != nil {
			return nil, err
		}
		sound.Samples = samples
	} else {
		sound.Samples = []byte(p)
	}

	return &sound, nil
}
