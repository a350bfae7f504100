package jsonutils

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractObjectPlain(t *testing.T) {
	raw, err := ExtractObject(`{"response": "woof", "reasoning": "happy"}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["response"] != "woof" {
		t.Errorf("expected response 'woof', got %q", out["response"])
	}
}

func TestExtractObjectFencedBlock(t *testing.T) {
	input := "Here is your answer:\n```json\n{\"response\": \"meow\"}\n```\nHope that helps!"
	raw, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(raw) != `{"response": "meow"}` {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractObjectSurroundingProse(t *testing.T) {
	input := `Sure! {"response": "a {nested} brace in a string", "ok": true} trailing prose`
	raw, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	var out struct {
		Response string `json:"response"`
		OK       bool   `json:"ok"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !out.OK || out.Response != "a {nested} brace in a string" {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestExtractObjectEscapedQuoteInString(t *testing.T) {
	input := `{"response": "she said \"hi\" {", "n": 1}`
	raw, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !json.Valid(raw) {
		t.Errorf("extracted candidate is not valid json: %s", raw)
	}
}

func TestExtractObjectTrailingCommas(t *testing.T) {
	input := `{"a": 1, "b": [1, 2,],}`
	raw, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	var out struct {
		A int   `json:"a"`
		B []int `json:"b"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.A != 1 || len(out.B) != 2 {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestExtractObjectInvisibleRunes(t *testing.T) {
	input := "\uFEFF{\"a\":\u200B 1}"
	raw, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(raw) != `{"a": 1}` {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractObjectIdempotent(t *testing.T) {
	input := "```json\n{\"a\": 1,}\n```"
	first, err := ExtractObject(input)
	if err != nil {
		t.Fatalf("first extract failed: %v", err)
	}
	second, err := ExtractObject(string(first))
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("extraction not idempotent: %s vs %s", first, second)
	}
}

func TestExtractObjectMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"no json here at all",
		`{"never": "closed"`,
		"[1, 2, 3]",
		`{"bad": }`,
	} {
		if _, err := ExtractObject(input); !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("input %q: expected ErrMalformedOutput, got %v", input, err)
		}
	}
}

func TestDecodeObject(t *testing.T) {
	var out struct {
		Scenario string `json:"scenario"`
	}
	if err := DecodeObject("```json\n{\"scenario\": \"tail wag\"}\n```", &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Scenario != "tail wag" {
		t.Errorf("expected 'tail wag', got %q", out.Scenario)
	}

	var n int
	if err := DecodeObject(`{"a": 1}`, &n); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("expected ErrMalformedOutput on type mismatch, got %v", err)
	}
}
