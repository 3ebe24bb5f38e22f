package request

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tangb/remotedev/internal/rdlog"
)

// markerPrefix is the ASCII framing marker that precedes every serialized
// document on the wire.
const markerPrefix = "::LENGTH="
const markerSuffix = "::"

// errNeedMore signals that the Decoder's buffer does not yet hold a
// complete request; the caller should feed more bytes and retry.
var errNeedMore = errors.New("request: need more bytes")

// ErrNeedMore is the exported form of the need-more-bytes signal, for
// callers that want to distinguish it from a real decode failure.
var ErrNeedMore = errNeedMore

// Encode writes the framing marker followed by the msgpack document for r.
func Encode(w io.Writer, r *Request) error {
	doc, err := msgpack.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	marker := markerPrefix + strconv.Itoa(len(doc)) + markerSuffix
	if _, err := io.WriteString(w, marker); err != nil {
		return errors.Wrap(err, "write marker")
	}
	if _, err := w.Write(doc); err != nil {
		return errors.Wrap(err, "write document")
	}
	return nil
}

// Decoder accumulates bytes read from a stream and yields complete
// requests as they become available. It is not safe for concurrent use.
type Decoder struct {
	buf bytes.Buffer
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly-read bytes to the decoder's internal buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Next parses and removes one request from the buffer. It returns
// ErrNeedMore when the buffer does not yet contain a whole marker+document
// pair. A malformed marker is resynchronized by discarding bytes up to the
// next occurrence of the marker prefix; an invalid kind yields a Request
// with Kind == KindUnknown rather than an error, per spec (endpoints log
// and drop it).
func (d *Decoder) Next() (*Request, error) {
	data := d.buf.Bytes()

	start := bytes.Index(data, []byte(markerPrefix))
	if start < 0 {
		// Nothing resembling a marker yet; keep only a short tail in case
		// the prefix is split across reads.
		if d.buf.Len() > len(markerPrefix) {
			keep := d.buf.Bytes()[d.buf.Len()-len(markerPrefix):]
			d.buf.Reset()
			d.buf.Write(keep)
		}
		return nil, errNeedMore
	}
	if start > 0 {
		rdlog.Errorf("request.Decoder", "discarding %d bytes before next marker", start)
		d.discard(start)
		data = d.buf.Bytes()
	}

	suffixIdx := bytes.Index(data[len(markerPrefix):], []byte(markerSuffix))
	if suffixIdx < 0 {
		return nil, errNeedMore
	}
	lengthStr := string(data[len(markerPrefix) : len(markerPrefix)+suffixIdx])
	n, err := strconv.Atoi(lengthStr)
	if err != nil || n < 0 {
		// Malformed marker: resync past this bogus prefix occurrence and
		// let the next call find a later one.
		rdlog.Errorf("request.Decoder", "malformed length marker %q, resyncing", lengthStr)
		d.discard(len(markerPrefix) + suffixIdx + len(markerSuffix))
		return d.Next()
	}

	headerLen := len(markerPrefix) + suffixIdx + len(markerSuffix)
	if len(data) < headerLen+n {
		return nil, errNeedMore
	}

	doc := data[headerLen : headerLen+n]
	req := &Request{}
	if err := msgpack.Unmarshal(doc, req); err != nil {
		rdlog.Errorf("request.Decoder", "invalid document, dropping: %v", err)
		d.discard(headerLen + n)
		return &Request{Kind: KindUnknown}, nil
	}
	d.discard(headerLen + n)
	if req.Kind > KindPong {
		rdlog.Errorf("request.Decoder", "invalid kind %d, dropping", req.Kind)
		return &Request{Kind: KindUnknown}, nil
	}
	return req, nil
}

func (d *Decoder) discard(n int) {
	d.buf.Next(n)
}

// DecodeAll drains every complete request currently buffered, stopping at
// the first ErrNeedMore. Convenience wrapper over repeated Next calls.
func (d *Decoder) DecodeAll() ([]*Request, error) {
	var out []*Request
	for {
		r, err := d.Next()
		if err == errNeedMore {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}
