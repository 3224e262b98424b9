package db

import (
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

const RecordClass srsc.RecordType = 0x0020

type FieldType uint16

const (
	FieldInteger FieldType = iota
	FieldFloat
	FieldClass
	FieldModel
	FieldSound
	FieldAnimation
	FieldSequence
	FieldTexture
	FieldString
	FieldEnum
)

var fieldTypeNames = map[FieldType]string{
	FieldInteger:   "integer",
	FieldFloat:     "float",
	FieldClass:     "class",
	FieldModel:     "model",
	FieldSound:     "sound",
	FieldAnimation: "animation",
	FieldSequence:  "sequence",
	FieldTexture:   "texture",
	FieldString:    "string",
	FieldEnum:      "enum",
}

func (f FieldType) String() string {
	if name, ok := fieldTypeNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", f)
}

// RefKind returns the kind of asset a reference field points to.
func (f FieldType) RefKind() (Kind, bool) {
	switch f {
	case FieldClass:
		return KindClass, true
	case FieldModel:
		return KindModel, true
	case FieldSound:
		return KindSound, true
	case FieldAnimation:
		return KindAnimation, true
	case FieldSequence:
		return KindSequence, true
	case FieldTexture:
		return KindTexture, true
	}

	return 0, false
}

// ClassField is one default value of a class. Which of the value fields is
// set depends on Type.
type ClassField struct {
	Type FieldType
	Name string

	Int   int32
	Float float32
	Str   string
	Ref   Reference
}

type Class struct {
	assetBase

	Name       string
	ModelRef   Reference
	RflClassId uint16
	IconNumber uint16
	Fields     []ClassField
}

func (c *Class) Kind() Kind {
	return KindClass
}

func (c *Class) Field(name string) (ClassField, bool) {
	for _, field := range c.Fields {
		if field.Name == name {
			return field, true
		}
	}

	return ClassField{}, false
}

func (c *Class) HasModel() bool {
	return !c.ModelRef.IsNull()
}

// Model resolves the class's model through the database it was loaded from.
func (c *Class) Model() (*Model, error) {
	if !c.HasModel() {
		return nil, fmt.Errorf("%w: class %s has no model", ErrNotFound, c.Name)
	}

	return ResolveModel(c.db, c.ModelRef)
}

func readField(p *srsc.Buffer) (ClassField, error) {
	field := ClassField{}

	err := p.Get(&field.Type)
	if err != nil {
		return field, err
	}

	field.Name, err = p.GetString()
	if err != nil {
		return field, err
	}

	switch field.Type {
	case FieldInteger, FieldEnum:
		err = p.Get(&field.Int)
	case FieldFloat:
		err = p.Get(&field.Float)
	case FieldString:
		field.Str, err = p.GetString()
	default:
		if _, ok := field.Type.RefKind(); !ok {
			return field, fmt.Errorf("%w: unknown field type %d for %q", srsc.ErrCorrupt, field.Type, field.Name)
		}
		field.Ref, err = ReadReference(p)
	}

	return field, err
}

func (d *Database) loadClass(file *srsc.File, id LocalId) (*Class, error) {
	index, ok := file.Find(RecordClass, id)
	if !ok {
		return nil, notFound(KindClass, id)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	class := Class{
		assetBase: assetBase{db: d, id: id},
	}

	class.Name, err = p.GetString()
	if err != nil {
		return nil, err
	}

	class.ModelRef, err = ReadReference(&p)
	if err != nil {
		return nil, err
	}

	var fieldCount uint16
	err = p.Get(&class.RflClassId, &class.IconNumber, &fieldCount)
	if err != nil {
		return nil, err
	}

	class.Fields = make([]ClassField, 0, fieldCount)
	for i := 0; i < int(fieldCount); i++ {
		field, err := readField(&p)
		if err != nil {
			return nil, err
		}
		class.Fields = append(class.Fields, field)
	}

	return &class, nil
}
