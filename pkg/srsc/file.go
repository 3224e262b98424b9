package srsc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

type RecordType uint16
type RecordId uint32

const (
	HEADER_SIZE = 8
	ENTRY_SIZE  = 16

	// Newest container version we can read.
	MAX_VERSION = 0x0100
)

var (
	ErrIO      = fmt.Errorf("container i/o error")
	ErrCorrupt = fmt.Errorf("container data corrupt")
)

type Header struct {
	Version         uint16
	DirectoryOffset uint32
	RecordCount     uint16
}

// RecordInfo is one entry in a container's directory.
type RecordInfo struct {
	Type   RecordType
	Id     RecordId
	Group  uint16
	Size   uint32
	Offset uint32
}

// File is an opened container. Only the directory is held in memory;
// payloads are read on demand.
type File struct {
	path    string
	version uint16
	records []RecordInfo

	mutex  deadlock.Mutex
	file   *os.File
	closed bool
}

type options struct {
	maxVersion uint16
}

type Option func(*options)

func WithMaxVersion(version uint16) Option {
	return func(o *options) {
		o.maxVersion = version
	}
}

func Open(path string, opts ...Option) (*File, error) {
	settings := options{
		maxVersion: MAX_VERSION,
	}
	for _, apply := range opts {
		apply(&settings)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	container := &File{
		path: path,
		file: file,
	}

	err = container.readDirectory(settings.maxVersion)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("could not open container %s: %w", path, err)
	}

	return container, nil
}

// TryOpen opens the container at path if it exists. A missing file is not
// an error; anything wrong with a file that does exist is.
func TryOpen(path string, opts ...Option) (opt.Option[*File], error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return opt.None[*File](), nil
	}

	file, err := Open(path, opts...)
	if err != nil {
		return opt.None[*File](), err
	}

	return opt.Some(file), nil
}

func (f *File) readDirectory(maxVersion uint16) error {
	stat, err := f.file.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	fileSize := uint64(stat.Size())

	if fileSize < HEADER_SIZE {
		return fmt.Errorf("%w: file too small for header", ErrIO)
	}

	headerData := make([]byte, HEADER_SIZE)
	_, err = f.file.ReadAt(headerData, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	header := Header{}
	p := Buffer(headerData)
	err = p.Get(&header)
	if err != nil {
		return err
	}

	if header.Version > maxVersion {
		return fmt.Errorf("%w: unsupported container version 0x%04x", ErrIO, header.Version)
	}

	directoryEnd := uint64(header.DirectoryOffset) + uint64(header.RecordCount)*ENTRY_SIZE
	if directoryEnd > fileSize {
		return fmt.Errorf(
			"%w: directory of %d records at 0x%x runs past end of file",
			ErrIO,
			header.RecordCount,
			header.DirectoryOffset,
		)
	}

	directoryData := make([]byte, int(header.RecordCount)*ENTRY_SIZE)
	if len(directoryData) > 0 {
		_, err = f.file.ReadAt(directoryData, int64(header.DirectoryOffset))
		if err != nil && err != io.EOF {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}

	p = Buffer(directoryData)
	records := make([]RecordInfo, header.RecordCount)
	for i := range records {
		record := RecordInfo{}
		err = p.Get(&record)
		if err != nil {
			return err
		}

		if uint64(record.Offset)+uint64(record.Size) > fileSize {
			return fmt.Errorf(
				"%w: record %d (type 0x%04x, id %d) runs past end of file",
				ErrIO,
				i,
				record.Type,
				record.Id,
			)
		}

		records[i] = record
	}

	f.version = header.Version
	f.records = records
	return nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Version() uint16 {
	return f.version
}

func (f *File) Len() int {
	return len(f.records)
}

// Records returns the directory. It must not be modified.
func (f *File) Records() []RecordInfo {
	return f.records
}

func (f *File) Record(index int) RecordInfo {
	return f.records[index]
}

func matches(record RecordInfo, type_ RecordType, id RecordId) bool {
	return record.Type == type_ && record.Id == id
}

// Find returns the index of the first record with the given type and id.
func (f *File) Find(type_ RecordType, id RecordId) (int, bool) {
	for i, record := range f.records {
		if matches(record, type_, id) {
			return i, true
		}
	}

	return -1, false
}

// FindType returns the index of the first record of the given type.
func (f *File) FindType(type_ RecordType) (int, bool) {
	for i, record := range f.records {
		if record.Type == type_ {
			return i, true
		}
	}

	return -1, false
}

// FindNext searches the entries after from for a record with the given type
// and id, looking at no more than window entries. A window of zero or less
// searches to the end of the directory.
func (f *File) FindNext(from int, type_ RecordType, id RecordId, window int) (int, bool) {
	end := len(f.records)
	if window > 0 && from+1+window < end {
		end = from + 1 + window
	}

	for i := from + 1; i < end; i++ {
		if matches(f.records[i], type_, id) {
			return i, true
		}
	}

	return -1, false
}

// Read returns a cursor over the payload of the record at index.
func (f *File) Read(index int) (Buffer, error) {
	if index < 0 || index >= len(f.records) {
		return nil, fmt.Errorf("%w: no record at index %d", ErrIO, index)
	}

	record := f.records[index]
	data := make([]byte, record.Size)

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return nil, fmt.Errorf("%w: container %s is closed", ErrIO, f.path)
	}

	if len(data) == 0 {
		return Buffer(data), nil
	}

	_, err := f.file.ReadAt(data, int64(record.Offset))
	if err != nil {
		return nil, fmt.Errorf("%w: reading record %d: %v", ErrIO, index, err)
	}

	return Buffer(data), nil
}

// ReadType returns a cursor over the first record of the given type.
func (f *File) ReadType(type_ RecordType) (Buffer, error) {
	index, ok := f.FindType(type_)
	if !ok {
		return nil, fmt.Errorf("%w: no record of type 0x%04x", ErrIO, type_)
	}

	return f.Read(index)
}

// Checksum hashes the payload of the record at index.
func (f *File) Checksum(index int) (uint64, error) {
	data, err := f.Read(index)
	if err != nil {
		return 0, err
	}

	return xxhash.Sum64(data), nil
}

func (f *File) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	return f.file.Close()
}
