package split

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

// Split is an immutable work unit: an ordered set of record ids and the
// endpoint to fetch them from.
//
// Binary form, all integers big-endian:
//
//	location  uint16 length | utf-8 bytes
//	count     int32
//	count × { container uint16 length | bytes, key uint16 length | bytes }
type Split struct {
	location endpoint.Endpoint
	ids      []models.RecordID
}

// New returns a Split over a copy of ids.
func New(location endpoint.Endpoint, ids []models.RecordID) *Split {
	cp := make([]models.RecordID, len(ids))
	copy(cp, ids)
	return &Split{location: location, ids: cp}
}

// Location returns the endpoint the split reads from.
func (s *Split) Location() endpoint.Endpoint { return s.location }

// Locations returns the serialized endpoint for schedulers that place work by
// host.
func (s *Split) Locations() []string {
	return []string{s.location.String()}
}

// IDs returns a copy of the split's record ids in order.
func (s *Split) IDs() []models.RecordID {
	out := make([]models.RecordID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of record ids.
func (s *Split) Len() int { return len(s.ids) }

// Equal reports whether both splits hold the same endpoint and ids in the
// same order.
func (s *Split) Equal(other *Split) bool {
	if s == nil || other == nil {
		return s == other
	}
	if !s.location.Equal(other.location) || len(s.ids) != len(other.ids) {
		return false
	}
	for i := range s.ids {
		if s.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

func (s *Split) String() string {
	return fmt.Sprintf("Split[location=%s, records=%d]", s.location, len(s.ids))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Split) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the binary form of s to w.
func (s *Split) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := writeString(&buf, s.location.String()); err != nil {
		return 0, err
	}
	if len(s.ids) > math.MaxInt32 {
		return 0, errors.Newf(errors.ErrorTypeFormat, "split holds %d ids, more than an envelope can carry", len(s.ids))
	}
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(s.ids)))
	buf.Write(count[:])
	for _, id := range s.ids {
		if err := writeString(&buf, id.Container); err != nil {
			return 0, err
		}
		if err := writeString(&buf, id.Key); err != nil {
			return 0, err
		}
	}

	n, err := w.Write(buf.Bytes())
	if err != nil {
		return int64(n), errors.Wrap(err, errors.ErrorTypeIO, "write split")
	}
	return int64(n), nil
}

// Read decodes one split from r.
func Read(r io.Reader) (*Split, error) {
	s := &Split{}
	if _, err := s.ReadFrom(r); err != nil {
		return nil, err
	}
	return s, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing bytes are
// rejected.
func (s *Split) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	decoded, err := Read(r)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Newf(errors.ErrorTypeFormat, "%d trailing bytes after split", r.Len())
	}
	*s = *decoded
	return nil
}

// ReadFrom decodes the binary form from r into s. It is intended for zero
// Splits; once decoded a Split is not modified again.
func (s *Split) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	loc, err := readString(cr)
	if err != nil {
		return cr.n, err
	}
	location, err := endpoint.Parse(loc)
	if err != nil {
		return cr.n, err
	}

	var count [4]byte
	if _, err := io.ReadFull(cr, count[:]); err != nil {
		return cr.n, truncated(err)
	}
	n := int32(binary.BigEndian.Uint32(count[:]))
	if n < 0 {
		return cr.n, errors.Newf(errors.ErrorTypeFormat, "negative id count %d", n)
	}

	// Cap the preallocation; a corrupt count must not reserve gigabytes
	capacity := int(n)
	if capacity > 1<<16 {
		capacity = 1 << 16
	}
	ids := make([]models.RecordID, 0, capacity)
	for i := int32(0); i < n; i++ {
		container, err := readString(cr)
		if err != nil {
			return cr.n, err
		}
		key, err := readString(cr)
		if err != nil {
			return cr.n, err
		}
		ids = append(ids, models.NewRecordID(container, key))
	}

	s.location = location
	s.ids = ids
	return cr.n, nil
}

// textSplit is the JSON form of a split.
type textSplit struct {
	Location endpoint.Endpoint `json:"location"`
	IDs      []models.RecordID `json:"ids"`
}

// MarshalJSON implements json.Marshaler.
func (s *Split) MarshalJSON() ([]byte, error) {
	ids := s.ids
	if ids == nil {
		ids = []models.RecordID{}
	}
	return codec.Marshal(textSplit{Location: s.location, IDs: ids})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Split) UnmarshalJSON(data []byte) error {
	var ts textSplit
	if err := codec.Unmarshal(data, &ts); err != nil {
		if errors.HasType(err, errors.ErrorTypeFormat) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeFormat, "decode split")
	}
	if ts.Location.IsZero() {
		return errors.New(errors.ErrorTypeFormat, "split has no location")
	}
	*s = *New(ts.Location, ts.IDs)
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.Newf(errors.ErrorTypeFormat, "string of %d bytes exceeds %d byte limit", len(s), math.MaxUint16)
	}
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s)))
	buf.Write(length[:])
	buf.WriteString(s)
	return nil
}

func readString(r io.Reader) (string, error) {
	var length [2]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return "", truncated(err)
	}
	data := make([]byte, binary.BigEndian.Uint16(length[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return "", truncated(err)
	}
	return string(data), nil
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFormat, "truncated split")
	}
	return errors.Wrap(err, errors.ErrorTypeIO, "read split")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
