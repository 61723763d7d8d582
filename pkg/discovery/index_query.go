package discovery

import (
	"bytes"
	"context"
	"strconv"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// IndexQueryName identifies the IndexQuery strategy.
const IndexQueryName = "index_query"

// IndexQuery discovers ids through a secondary index lookup, either by a
// single value or by an inclusive range. The value type follows the index
// name suffix: `_int` for integers, `_bin` for strings.
//
// The init string is a flat JSON object:
//
//	{"bucket":"users","index":"age_int","qtype":"range","start":"18","end":"30"}
//
// qtype is optional when reading. Without it a document holding both start
// and end and no key is read as a range query, anything else as equality.
type IndexQuery struct {
	query store.IndexQuery
}

// NewIndexQuery returns an IndexQuery strategy running q.
func NewIndexQuery(q store.IndexQuery) *IndexQuery {
	return &IndexQuery{query: q}
}

// Name implements Strategy.
func (i *IndexQuery) Name() string { return IndexQueryName }

// Query returns the configured index query.
func (i *IndexQuery) Query() store.IndexQuery { return i.query }

// indexDocument is the serialized form of an index query.
type indexDocument struct {
	Bucket string     `json:"bucket"`
	Index  string     `json:"index"`
	QType  string     `json:"qtype,omitempty"`
	Key    *textValue `json:"key,omitempty"`
	Start  *textValue `json:"start,omitempty"`
	End    *textValue `json:"end,omitempty"`
}

// textValue accepts both JSON strings and JSON numbers so integer index
// values written as numbers still decode.
type textValue string

func (v *textValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := codec.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = textValue(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return errors.Newf(errors.ErrorTypeFormat, "index value %s is neither string nor number", data)
	}
	*v = textValue(data)
	return nil
}

func text(s string) *textValue {
	v := textValue(s)
	return &v
}

func (v *textValue) String() string {
	if v == nil {
		return ""
	}
	return string(*v)
}

// InitString implements Strategy.
func (i *IndexQuery) InitString() (string, error) {
	doc := indexDocument{
		Bucket: i.query.Container,
		Index:  i.query.Index,
		QType:  string(i.query.Kind),
	}
	if i.query.IsRange() {
		doc.Start, doc.End = text(i.query.Start), text(i.query.End)
	} else {
		doc.Key = text(i.query.Value)
	}

	out, err := codec.MarshalString(doc)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "encode index query")
	}
	return out, nil
}

// Init implements Strategy.
func (i *IndexQuery) Init(s string) error {
	var doc indexDocument
	if err := codec.Unmarshal([]byte(s), &doc); err != nil {
		return invalidInit(IndexQueryName, err)
	}

	kind := store.QueryKind(doc.QType)
	if kind == "" {
		kind = store.QueryEqual
		if doc.Start != nil && doc.End != nil && doc.Key == nil {
			kind = store.QueryRange
		}
	}

	q := store.IndexQuery{
		Container: doc.Bucket,
		Index:     doc.Index,
		Kind:      kind,
	}
	if kind == store.QueryRange {
		q.Start, q.End = doc.Start.String(), doc.End.String()
	} else {
		q.Value = doc.Key.String()
	}

	if err := q.Validate(); err != nil {
		return invalidInit(IndexQueryName, err)
	}
	i.query = q
	return nil
}

// Discover implements Strategy.
func (i *IndexQuery) Discover(ctx context.Context, conn store.Connection) ([]models.RecordID, error) {
	if i.query.Container == "" || i.query.Index == "" {
		return nil, notConfigured(IndexQueryName)
	}
	if err := i.query.Validate(); err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, noConnection(IndexQueryName)
	}
	ids, err := conn.IndexQuery(ctx, i.query)
	if err != nil {
		return nil, err
	}
	return normalize(ids), nil
}
