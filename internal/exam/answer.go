package exam

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var ErrUnsupportedAnswer = errors.New("answer must be a string, number, boolean or null")

type AnswerKind uint8

const (
	AnswerNull AnswerKind = iota
	AnswerString
	AnswerNumber
	AnswerBool
)

// Answer is a scalar answer value, either a question's correct answer or a
// submitted one. Two answers are equal only when kind and value match
// exactly; strings are never trimmed or case-folded.
type Answer struct {
	kind AnswerKind
	str  string
	num  float64
	b    bool
}

func StringAnswer(s string) Answer  { return Answer{kind: AnswerString, str: s} }
func NumberAnswer(f float64) Answer { return Answer{kind: AnswerNumber, num: f} }
func BoolAnswer(b bool) Answer      { return Answer{kind: AnswerBool, b: b} }

func (a Answer) Kind() AnswerKind { return a.kind }

func (a Answer) IsNull() bool { return a.kind == AnswerNull }

func (a Answer) Equal(o Answer) bool {
	if a.kind != o.kind {
		return false
	}
	switch a.kind {
	case AnswerString:
		return a.str == o.str
	case AnswerNumber:
		return a.num == o.num
	case AnswerBool:
		return a.b == o.b
	default:
		return true
	}
}

// String renders the answer for display and spreadsheets.
func (a Answer) String() string {
	switch a.kind {
	case AnswerString:
		return a.str
	case AnswerNumber:
		return strconv.FormatFloat(a.num, 'f', -1, 64)
	case AnswerBool:
		return strconv.FormatBool(a.b)
	default:
		return ""
	}
}

func (a Answer) value() any {
	switch a.kind {
	case AnswerString:
		return a.str
	case AnswerNumber:
		return a.num
	case AnswerBool:
		return a.b
	default:
		return nil
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value())
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*a = Answer{}
	case string:
		*a = StringAnswer(t)
	case float64:
		*a = NumberAnswer(t)
	case bool:
		*a = BoolAnswer(t)
	default:
		return fmt.Errorf("%w: got %s", ErrUnsupportedAnswer, string(data))
	}
	return nil
}

func (a Answer) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if a.kind == AnswerNull {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(a.value())
}

func (a *Answer) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*a = Answer{}
	case bsontype.String:
		*a = StringAnswer(rv.StringValue())
	case bsontype.Double:
		*a = NumberAnswer(rv.Double())
	case bsontype.Int32:
		*a = NumberAnswer(float64(rv.Int32()))
	case bsontype.Int64:
		*a = NumberAnswer(float64(rv.Int64()))
	case bsontype.Boolean:
		*a = BoolAnswer(rv.Boolean())
	default:
		return fmt.Errorf("%w: bson type %s", ErrUnsupportedAnswer, t)
	}
	return nil
}
