package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestOutcomeKindString(t *testing.T) {
	if OutcomeAnswered.String() != "answered" {
		t.Errorf("got %s", OutcomeAnswered)
	}
	if OutcomeNoMatch.String() != "no_match" {
		t.Errorf("got %s", OutcomeNoMatch)
	}
	if OutcomeKind(42).String() != "unknown" {
		t.Error("out of range kind should be unknown")
	}
}

func TestOutcomeResponse(t *testing.T) {
	o := RetrievalOutcome{
		Answer:          "a",
		Confidence:      87.5,
		MatchedQuestion: "q",
		ProcessingTime:  1500 * time.Millisecond,
	}
	r := o.Response()
	if r.ProcessingTime != 1.5 {
		t.Errorf("ProcessingTime = %v, want 1.5", r.ProcessingTime)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"answer"`, `"confidence"`, `"source_question"`, `"processing_time"`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("response JSON missing %s: %s", key, b)
		}
	}
}

func TestEncodeDecodeOutcomeKeepsKind(t *testing.T) {
	in := RetrievalOutcome{Answer: ClarifyMessage, Confidence: 12, MatchedQuestion: "q", Kind: OutcomeLowConfidence}
	b, err := EncodeOutcome(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"low_confidence"`) {
		t.Errorf("kind should be encoded by name: %s", b)
	}
	out, err := DecodeOutcome(b)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestAskResponseOutcome(t *testing.T) {
	tests := []struct {
		answer string
		want   OutcomeKind
	}{
		{"Bạn có thể đổi vé trong mục Vé của tôi.", OutcomeAnswered},
		{ClarifyMessage, OutcomeLowConfidence},
		{NotReadyMessage, OutcomeNotReady},
		{ProcessingErrorMessage, OutcomeProcessingError},
		{NoMatchMessage, OutcomeNoMatch},
	}
	for _, tt := range tests {
		o := AskResponse{Answer: tt.answer, ProcessingTime: 0.25}.Outcome()
		if o.Kind != tt.want {
			t.Errorf("%q: kind = %v, want %v", tt.answer, o.Kind, tt.want)
		}
		if o.ProcessingTime != 250*time.Millisecond {
			t.Errorf("processing time = %v", o.ProcessingTime)
		}
	}
}
