package srsc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Buffer is a little-endian cursor over a record's payload. Reads consume
// from the front.
type Buffer []byte

func (p *Buffer) Read(n []byte) (int, error) {
	if len(*p) == 0 {
		return 0, io.EOF
	}

	numRead := copy(n, *p)
	*p = (*p)[numRead:]
	return numRead, nil
}

func (p *Buffer) ReadByte() (byte, error) {
	if len(*p) == 0 {
		return 0, io.EOF
	}

	value := (*p)[0]
	*p = (*p)[1:]
	return value, nil
}

func (p *Buffer) Len() int {
	return len(*p)
}

// Get decodes each piece, which must be a pointer to a fixed-size value or
// struct, in order.
func (p *Buffer) Get(pieces ...interface{}) error {
	for _, piece := range pieces {
		err := binary.Read(p, binary.LittleEndian, piece)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: record ended early", ErrIO)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Buffer) Skip(n int) error {
	if n < 0 || n > len(*p) {
		return fmt.Errorf("%w: cannot skip %d bytes, %d left", ErrIO, n, len(*p))
	}
	(*p) = (*p)[n:]
	return nil
}

func (p *Buffer) GetBytes(n int) ([]byte, error) {
	if n < 0 || n > len(*p) {
		return nil, fmt.Errorf("%w: wanted %d bytes, %d left", ErrIO, n, len(*p))
	}

	value := make([]byte, n)
	copy(value, *p)
	*p = (*p)[n:]
	return value, nil
}

// GetString reads a string prefixed by its length as a u16.
func (p *Buffer) GetString() (string, error) {
	var length uint16
	err := p.Get(&length)
	if err != nil {
		return "", err
	}

	value, err := p.GetBytes(int(length))
	if err != nil {
		return "", err
	}

	return string(value), nil
}

// GetFixedString reads a NUL-padded string of exactly n bytes.
func (p *Buffer) GetFixedString(n int) (string, error) {
	value, err := p.GetBytes(n)
	if err != nil {
		return "", err
	}

	if end := bytes.IndexByte(value, 0); end != -1 {
		value = value[:end]
	}

	return string(value), nil
}

// Expect reads a value of the same type as expected and fails if they
// differ.
func Expect[T comparable](p *Buffer, expected T) error {
	var value T
	err := p.Get(&value)
	if err != nil {
		return err
	}

	if value != expected {
		return fmt.Errorf("%w: expected %v, got %v", ErrCorrupt, expected, value)
	}

	return nil
}

// GetCompressed reads a u32 compressed size followed by a zlib stream and
// returns the inflated data. The stream must end exactly where the size
// says it does.
func (p *Buffer) GetCompressed() (Buffer, error) {
	var compressedSize uint32
	err := p.Get(&compressedSize)
	if err != nil {
		return nil, err
	}

	if int64(compressedSize) > int64(len(*p)) {
		return nil, fmt.Errorf(
			"%w: compressed segment of %d bytes, %d left",
			ErrIO,
			compressedSize,
			len(*p),
		)
	}

	stream, err := NewZStream(*p, compressedSize)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		stream.reader.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	err = stream.Close()
	if err != nil {
		return nil, err
	}

	*p = (*p)[compressedSize:]
	return Buffer(data), nil
}

func (p *Buffer) Put(pieces ...interface{}) error {
	for _, piece := range pieces {
		var buffer bytes.Buffer
		err := binary.Write(&buffer, binary.LittleEndian, piece)
		if err != nil {
			return err
		}

		*p = append(*p, buffer.Bytes()...)
	}

	return nil
}

func (p *Buffer) PutBytes(data []byte) {
	*p = append(*p, data...)
}

func (p *Buffer) PutString(value string) error {
	if len(value) > 0xFFFF {
		return fmt.Errorf("string of %d bytes is too long", len(value))
	}

	err := p.Put(uint16(len(value)))
	if err != nil {
		return err
	}

	p.PutBytes([]byte(value))
	return nil
}

// PutFixedString writes value NUL-padded to exactly n bytes.
func (p *Buffer) PutFixedString(value string, n int) error {
	if len(value) > n {
		return fmt.Errorf("string %q does not fit in %d bytes", value, n)
	}

	padded := make([]byte, n)
	copy(padded, value)
	p.PutBytes(padded)
	return nil
}

// PutCompressed writes data as a u32 compressed size and a zlib stream.
func (p *Buffer) PutCompressed(data []byte) error {
	compressed, err := Compress(data)
	if err != nil {
		return err
	}

	p.PutBytes(compressed)
	return nil
}
