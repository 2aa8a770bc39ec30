package device

import (
	"bytes"
	"encoding/json"
	"io"

	"codeberg.org/mutker/minerdriver/internal/errors"
)

const readChunkSize = 1024

// replyReader accumulates a device reply from r. Reading stops at the first
// of: the peer closing the connection, the buffer holding one complete JSON
// document, or the buffer growing past limit bytes.
type replyReader struct {
	r     io.Reader
	limit int
	buf   bytes.Buffer
}

func newReplyReader(r io.Reader, limit int) *replyReader {
	return &replyReader{r: r, limit: limit}
}

func (rr *replyReader) ReadReply() ([]byte, error) {
	errFactory := errors.New()
	chunk := make([]byte, readChunkSize)

	for {
		n, err := rr.r.Read(chunk)
		if n > 0 {
			rr.buf.Write(chunk[:n])
			if rr.buf.Len() > rr.limit {
				return nil, errFactory.WithData(ErrReplyTooLarge, rr.limit)
			}
			if rr.complete() {
				return rr.buf.Bytes(), nil
			}
		}

		if errors.Is(err, io.EOF) {
			if rr.buf.Len() == 0 {
				return nil, errFactory.New(ErrEmptyReply)
			}
			return rr.buf.Bytes(), nil
		}
		if err != nil {
			return nil, errFactory.Wrap(ErrRead, err)
		}
	}
}

func (rr *replyReader) complete() bool {
	trimmed := bytes.TrimSpace(rr.buf.Bytes())
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != '}' {
		return false
	}
	return json.Valid(trimmed)
}
