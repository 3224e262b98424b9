package srsc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZStream inflates one zlib segment embedded in a larger buffer. The
// decompressor reads its source byte-wise, so once the stream is exhausted
// the source sits exactly at the end of the segment.
type ZStream struct {
	source *bytes.Reader
	reader io.ReadCloser
	start  int
	size   uint32
}

// NewZStream starts inflating at the front of data. size is the compressed
// length the container declared for the segment.
func NewZStream(data []byte, size uint32) (*ZStream, error) {
	source := bytes.NewReader(data)
	reader, err := zlib.NewReader(source)
	if err != nil {
		return nil, fmt.Errorf("%w: bad zlib header: %v", ErrCorrupt, err)
	}

	return &ZStream{
		source: source,
		reader: reader,
		start:  len(data),
		size:   size,
	}, nil
}

func (z *ZStream) Read(p []byte) (int, error) {
	return z.reader.Read(p)
}

// Consumed is the number of compressed bytes read so far.
func (z *ZStream) Consumed() int {
	return z.start - z.source.Len()
}

// Close drains the stream to the end of its segment and verifies that
// exactly the declared number of compressed bytes were consumed.
func (z *ZStream) Close() error {
	_, err := io.Copy(io.Discard, z.reader)
	closeErr := z.reader.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, closeErr)
	}

	if z.Consumed() != int(z.size) {
		return fmt.Errorf(
			"%w: zlib stream read %d bytes, segment declared %d",
			ErrCorrupt,
			z.Consumed(),
			z.size,
		)
	}

	return nil
}

// Compress returns data as a u32 compressed size followed by a zlib stream,
// the framing GetCompressed expects.
func Compress(data []byte) ([]byte, error) {
	var compressed bytes.Buffer
	writer := zlib.NewWriter(&compressed)
	_, err := writer.Write(data)
	if err != nil {
		return nil, err
	}

	err = writer.Close()
	if err != nil {
		return nil, err
	}

	framed := make([]byte, 4, 4+compressed.Len())
	binary.LittleEndian.PutUint32(framed, uint32(compressed.Len()))
	return append(framed, compressed.Bytes()...), nil
}
