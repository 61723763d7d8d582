package pbc

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

// Message codes of the binary protocol.
const (
	codeErrorResp       byte = 0
	codePingReq         byte = 1
	codePingResp        byte = 2
	codeGetReq          byte = 9
	codeGetResp         byte = 10
	codePutReq          byte = 11
	codePutResp         byte = 12
	codeListKeysReq     byte = 17
	codeListKeysResp    byte = 18
	codeIndexReq        byte = 25
	codeIndexResp       byte = 26
	codeSearchQueryReq  byte = 27
	codeSearchQueryResp byte = 28
)

// Index query types on the wire.
const (
	indexQueryEq    = 0
	indexQueryRange = 1
)

// Search document fields naming the container and key of a hit.
const (
	fieldContainer = "_yz_rb"
	fieldKey       = "_yz_rk"
	fieldLegacyKey = "id"
)

// searchPageSize is the number of search hits requested per round trip.
const searchPageSize int64 = 1000

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// field is one decoded top level field. Only varint and length-delimited
// fields are surfaced; other wire types are skipped.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	bytes []byte
	value uint64
}

// walk calls fn for every field in b.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func malformed(err error) error {
	return errors.Wrap(err, errors.ErrorTypeStore, "malformed protocol message")
}

func encodeGetReq(container, key string) []byte {
	var b []byte
	b = appendString(b, 1, container)
	b = appendString(b, 2, key)
	return b
}

func decodeGetResp(id models.RecordID, payload []byte) (*models.Record, error) {
	rec := &models.Record{ID: id}
	err := walk(payload, func(f field) error {
		switch f.num {
		case 1:
			sib, err := decodeContent(f.bytes)
			if err != nil {
				return err
			}
			rec.Siblings = append(rec.Siblings, sib)
		case 2:
			rec.VClock = append([]byte(nil), f.bytes...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeContent(b []byte) (models.Sibling, error) {
	var (
		sib          models.Sibling
		lastMod      uint64
		lastModUsecs uint64
	)
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			sib.Value = append([]byte(nil), f.bytes...)
		case 2:
			sib.ContentType = string(f.bytes)
		case 3:
			sib.Charset = string(f.bytes)
		case 4:
			sib.ContentEncoding = string(f.bytes)
		case 5:
			sib.VTag = string(f.bytes)
		case 7:
			lastMod = f.value
		case 8:
			lastModUsecs = f.value
		case 9:
			k, v, err := decodePair(f.bytes)
			if err != nil {
				return err
			}
			if sib.UserMeta == nil {
				sib.UserMeta = make(map[string]string)
			}
			sib.UserMeta[k] = v
		case 11:
			sib.Deleted = f.value != 0
		}
		return nil
	})
	if lastMod > 0 {
		sib.LastModified = time.Unix(int64(lastMod), int64(lastModUsecs)*int64(time.Microsecond)).UTC()
	}
	return sib, err
}

func decodePair(b []byte) (string, string, error) {
	var key, value string
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			key = string(f.bytes)
		case 2:
			value = string(f.bytes)
		}
		return nil
	})
	return key, value, err
}

func encodePutReq(container, key string, value []byte, contentType string) []byte {
	var content []byte
	content = appendBytes(content, 1, value)
	if contentType != "" {
		content = appendString(content, 2, contentType)
	}

	var b []byte
	b = appendString(b, 1, container)
	b = appendString(b, 2, key)
	b = appendBytes(b, 4, content)
	return b
}

func encodeListKeysReq(container string) []byte {
	return appendString(nil, 1, container)
}

// decodeListKeysResp returns the keys in one streamed chunk and whether it was
// the last one.
func decodeListKeysResp(payload []byte) ([]string, bool, error) {
	var (
		keys []string
		done bool
	)
	err := walk(payload, func(f field) error {
		switch f.num {
		case 1:
			keys = append(keys, string(f.bytes))
		case 2:
			done = f.value != 0
		}
		return nil
	})
	return keys, done, err
}

func encodeIndexReq(container, index string, isRange bool, value, start, end string) []byte {
	var b []byte
	b = appendString(b, 1, container)
	b = appendString(b, 2, index)
	if isRange {
		b = appendVarint(b, 3, indexQueryRange)
		b = appendString(b, 5, start)
		b = appendString(b, 6, end)
	} else {
		b = appendVarint(b, 3, indexQueryEq)
		b = appendString(b, 4, value)
	}
	return b
}

func decodeIndexResp(payload []byte) ([]string, error) {
	var keys []string
	err := walk(payload, func(f field) error {
		if f.num == 1 {
			keys = append(keys, string(f.bytes))
		}
		return nil
	})
	return keys, err
}

func encodeSearchQueryReq(index, query string, start, rows int64) []byte {
	var b []byte
	b = appendString(b, 1, query)
	b = appendString(b, 2, index)
	b = appendVarint(b, 3, uint64(rows))
	b = appendVarint(b, 4, uint64(start))
	for _, fl := range []string{fieldContainer, fieldKey, fieldLegacyKey} {
		b = appendString(b, 9, fl)
	}
	return b
}

// decodeSearchQueryResp returns the ids of the hits in one page and the total
// number of matches.
func decodeSearchQueryResp(container string, payload []byte) ([]models.RecordID, int64, error) {
	var (
		ids   []models.RecordID
		total int64
	)
	err := walk(payload, func(f field) error {
		switch f.num {
		case 1:
			doc := make(map[string]string)
			err := walk(f.bytes, func(df field) error {
				if df.num != 1 {
					return nil
				}
				k, v, err := decodePair(df.bytes)
				if err != nil {
					return err
				}
				doc[k] = v
				return nil
			})
			if err != nil {
				return err
			}
			if id, ok := searchHit(container, doc); ok {
				ids = append(ids, id)
			}
		case 3:
			total = int64(f.value)
		}
		return nil
	})
	return ids, total, err
}

// searchHit extracts the record id of a search document.
func searchHit(container string, doc map[string]string) (models.RecordID, bool) {
	c := doc[fieldContainer]
	if c == "" {
		c = container
	}
	k := doc[fieldKey]
	if k == "" {
		k = doc[fieldLegacyKey]
	}
	if k == "" {
		return models.RecordID{}, false
	}
	return models.NewRecordID(c, k), true
}

func decodeErrorResp(payload []byte) error {
	var (
		msg  string
		code uint64
	)
	if err := walk(payload, func(f field) error {
		switch f.num {
		case 1:
			msg = string(f.bytes)
		case 2:
			code = f.value
		}
		return nil
	}); err != nil {
		return err
	}
	return errors.Newf(errors.ErrorTypeStore, "server error: %s", msg).WithDetail("code", code)
}
