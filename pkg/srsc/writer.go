package srsc

import (
	"os"
)

type pendingRecord struct {
	info RecordInfo
	data []byte
}

// Writer assembles a container in memory: header, payloads in the order
// they were added, then the directory.
type Writer struct {
	Version uint16
	records []pendingRecord
}

func NewWriter() *Writer {
	return &Writer{
		Version: MAX_VERSION,
	}
}

func (w *Writer) Add(type_ RecordType, id RecordId, group uint16, data []byte) {
	w.records = append(w.records, pendingRecord{
		info: RecordInfo{
			Type:  type_,
			Id:    id,
			Group: group,
			Size:  uint32(len(data)),
		},
		data: data,
	})
}

func (w *Writer) Len() int {
	return len(w.records)
}

func (w *Writer) Bytes() ([]byte, error) {
	payloadSize := 0
	for _, record := range w.records {
		payloadSize += len(record.data)
	}

	header := Header{
		Version:         w.Version,
		DirectoryOffset: uint32(HEADER_SIZE + payloadSize),
		RecordCount:     uint16(len(w.records)),
	}

	p := make(Buffer, 0, HEADER_SIZE+payloadSize+len(w.records)*ENTRY_SIZE)
	err := p.Put(header)
	if err != nil {
		return nil, err
	}

	directory := make([]RecordInfo, 0, len(w.records))
	for _, record := range w.records {
		info := record.info
		info.Offset = uint32(len(p))
		directory = append(directory, info)
		p.PutBytes(record.data)
	}

	for _, info := range directory {
		err = p.Put(info)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (w *Writer) WriteFile(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
