package models

import (
	"encoding/json"
	"time"
)

// Fixed user-facing replies.
const (
	NotReadyMessage        = "Hệ thống đang khởi tạo, vui lòng thử lại sau."
	ProcessingErrorMessage = "Xin lỗi, đã xảy ra lỗi khi xử lý câu hỏi."
	NoMatchMessage         = "Xin lỗi, tôi không tìm thấy câu trả lời phù hợp cho câu hỏi của bạn."
	ClarifyMessage         = "Xin lỗi, tôi không hiểu rõ câu hỏi của bạn. Bạn có thể hỏi lại một cách cụ thể hơn không?"
)

// SearchResult is one nearest-neighbour hit from the vector index.
type SearchResult struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// OutcomeKind classifies how a question was resolved.
type OutcomeKind int

const (
	OutcomeAnswered OutcomeKind = iota
	OutcomeLowConfidence
	OutcomeNotReady
	OutcomeProcessingError
	OutcomeNoMatch
)

var outcomeNames = [...]string{"answered", "low_confidence", "not_ready", "processing_error", "no_match"}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[k]
}

// MarshalText implements encoding.TextMarshaler so kinds render by name in JSON.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for i, n := range outcomeNames {
		if n == string(b) {
			*k = OutcomeKind(i)
			return nil
		}
	}
	*k = OutcomeProcessingError
	return nil
}

// RetrievalOutcome is the result of answering one question. It is always
// well formed; failures are reported through Kind and a fixed Answer.
type RetrievalOutcome struct {
	Answer          string        `json:"answer"`
	Confidence      float64       `json:"confidence"`
	MatchedQuestion string        `json:"source_question"`
	ProcessingTime  time.Duration `json:"-"`
	Kind            OutcomeKind   `json:"kind"`
}

// AskResponse is the wire shape of POST /api/faq/ask.
type AskResponse struct {
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	SourceQuestion string  `json:"source_question"`
	ProcessingTime float64 `json:"processing_time"`
}

// Response converts the outcome to its wire shape; processing time is in seconds.
func (o RetrievalOutcome) Response() AskResponse {
	return AskResponse{
		Answer:         o.Answer,
		Confidence:     o.Confidence,
		SourceQuestion: o.MatchedQuestion,
		ProcessingTime: o.ProcessingTime.Seconds(),
	}
}

// Outcome converts a wire response back to an outcome. The kind is
// recovered from the fixed replies, so it is exact for every outcome the
// engine produces.
func (r AskResponse) Outcome() RetrievalOutcome {
	o := RetrievalOutcome{
		Answer:          r.Answer,
		Confidence:      r.Confidence,
		MatchedQuestion: r.SourceQuestion,
		ProcessingTime:  time.Duration(r.ProcessingTime * float64(time.Second)),
	}
	switch r.Answer {
	case NotReadyMessage:
		o.Kind = OutcomeNotReady
	case ProcessingErrorMessage:
		o.Kind = OutcomeProcessingError
	case NoMatchMessage:
		o.Kind = OutcomeNoMatch
	case ClarifyMessage:
		o.Kind = OutcomeLowConfidence
	default:
		o.Kind = OutcomeAnswered
	}
	return o
}

// cachedOutcome is the serialized form used by outcome caches.
type cachedOutcome struct {
	Answer          string      `json:"answer"`
	Confidence      float64     `json:"confidence"`
	MatchedQuestion string      `json:"source_question"`
	Kind            OutcomeKind `json:"kind"`
}

// EncodeOutcome serializes an outcome without its processing time.
func EncodeOutcome(o RetrievalOutcome) ([]byte, error) {
	return json.Marshal(cachedOutcome{
		Answer:          o.Answer,
		Confidence:      o.Confidence,
		MatchedQuestion: o.MatchedQuestion,
		Kind:            o.Kind,
	})
}

// DecodeOutcome is the inverse of EncodeOutcome.
func DecodeOutcome(b []byte) (RetrievalOutcome, error) {
	var c cachedOutcome
	if err := json.Unmarshal(b, &c); err != nil {
		return RetrievalOutcome{}, err
	}
	return RetrievalOutcome{
		Answer:          c.Answer,
		Confidence:      c.Confidence,
		MatchedQuestion: c.MatchedQuestion,
		Kind:            c.Kind,
	}, nil
}
