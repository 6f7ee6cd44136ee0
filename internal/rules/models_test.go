package rules

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// JSON round-trip
// ---------------------------------------------------------------------------

func TestConditionJSONRoundtrip(t *testing.T) {
	original := And(
		Simple("region", OpEquals, "cn"),
		Or(
			Simple("device", OpPrefix, "RTD"),
			Simple("score", OpGe, "80"),
		),
	)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Condition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Kind != KindAll {
		t.Fatalf("kind: got %d, want KindAll", decoded.Kind)
	}
	if len(decoded.Children) != 2 {
		t.Fatalf("children length: got %d, want 2", len(decoded.Children))
	}
	leaf := decoded.Children[0]
	if leaf.Kind != KindSimple || leaf.Field != "region" || leaf.Op != OpEquals || leaf.Value != "cn" {
		t.Errorf("first child: got %+v, want simple region equals cn", leaf)
	}
	nested := decoded.Children[1]
	if nested.Kind != KindAny || len(nested.Children) != 2 {
		t.Errorf("second child: got %+v, want or-aggregate with 2 children", nested)
	}
}

func TestConditionMarshal_EmptyAggregates(t *testing.T) {
	data, err := json.Marshal(And())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"and":[]}` {
		t.Errorf("empty and: got %s, want {\"and\":[]}", data)
	}

	data, err = json.Marshal(Or())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"or":[]}` {
		t.Errorf("empty or: got %s, want {\"or\":[]}", data)
	}
}

// ---------------------------------------------------------------------------
// Result
// ---------------------------------------------------------------------------

func TestResult_TextAndObject(t *testing.T) {
	text := TextResult("chip_rtd_cn")
	if got, ok := text.Text(); !ok || got != "chip_rtd_cn" {
		t.Errorf("Text() = %q, %v; want chip_rtd_cn, true", got, ok)
	}

	object, err := ObjectResult(map[string]any{"chip": "rtd", "tier": 2})
	if err != nil {
		t.Fatalf("ObjectResult: %v", err)
	}
	if object.IsText() {
		t.Error("object result reported as text")
	}
	if _, ok := object.Text(); ok {
		t.Error("Text() succeeded on an object result")
	}
}

func TestResult_UnmarshalRejectsOtherTypes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "number", doc: `42`},
		{name: "bool", doc: `true`},
		{name: "array", doc: `["a"]`},
		{name: "null", doc: `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Result
			if err := json.Unmarshal([]byte(tt.doc), &r); err == nil {
				t.Errorf("unmarshal %s: expected error, got nil", tt.doc)
			}
		})
	}
}

func TestResult_ObjectCarriedVerbatim(t *testing.T) {
	doc := `{"chip":"rtd","params":{"freq":2.4,"bands":["a","b"]}}`
	var r Result
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != doc {
		t.Errorf("round-trip: got %s, want %s", out, doc)
	}
}
