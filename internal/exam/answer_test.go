package exam

import (
	"encoding/json"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
	}{
		{in: `"B"`, want: StringAnswer("B")},
		{in: `""`, want: StringAnswer("")},
		{in: `42`, want: NumberAnswer(42)},
		{in: `2.5`, want: NumberAnswer(2.5)},
		{in: `true`, want: BoolAnswer(true)},
		{in: `null`, want: Answer{}},
	}
	for _, tc := range tests {
		var got Answer
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("unmarshal %s: got %#v want %#v", tc.in, got, tc.want)
		}
		out, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("marshal %s: %v", tc.in, err)
		}
		if string(out) != tc.in {
			t.Fatalf("marshal: got %s want %s", out, tc.in)
		}
	}
}

func TestAnswerJSONRejectsComposites(t *testing.T) {
	for _, in := range []string{`["A"]`, `{"a":1}`} {
		var a Answer
		if err := json.Unmarshal([]byte(in), &a); !errors.Is(err, ErrUnsupportedAnswer) {
			t.Fatalf("unmarshal %s: expected ErrUnsupportedAnswer, got %v", in, err)
		}
	}
}

func TestAnswerEqual(t *testing.T) {
	if StringAnswer("1").Equal(NumberAnswer(1)) {
		t.Fatalf("string and number must not be equal")
	}
	if !NumberAnswer(1).Equal(NumberAnswer(1.0)) {
		t.Fatalf("equal numbers should match")
	}
	if (Answer{}).Equal(StringAnswer("")) {
		t.Fatalf("null must not equal empty string")
	}
	if !(Answer{}).Equal(Answer{}) {
		t.Fatalf("null should equal null")
	}
}

func TestAnswerBSON(t *testing.T) {
	type doc struct {
		A Answer `bson:"a"`
	}
	for _, want := range []Answer{StringAnswer("C"), NumberAnswer(7), BoolAnswer(false), {}} {
		raw, err := bson.Marshal(doc{A: want})
		if err != nil {
			t.Fatalf("marshal %v: %v", want, err)
		}
		var got doc
		if err := bson.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal %v: %v", want, err)
		}
		if !got.A.Equal(want) {
			t.Fatalf("bson round trip: got %#v want %#v", got.A, want)
		}
	}
}

func TestAnswerBSONInt32IsNumber(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"a": int32(3)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		A Answer `bson:"a"`
	}
	if err := bson.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.A.Equal(NumberAnswer(3)) {
		t.Fatalf("expected number 3, got %#v", got.A)
	}
}
