package retrieval

import (
	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// DefaultConfidenceThreshold is the confidence below which the engine asks
// the user to rephrase instead of answering.
const DefaultConfidenceThreshold = 30.0

// Lookup resolves corpus ids to text.
type Lookup interface {
	QuestionAt(id int) string
	AnswerAt(id int) string
}

// Confidence maps an inner-product score to [0, 100].
func Confidence(score float64) float64 {
	return utils.Clamp(score*100, 0, 100)
}

// Decide turns ranked search results into an outcome. Only the top result is
// considered. A confidence strictly below threshold yields the clarify reply
// but still reports the confidence and matched question.
func Decide(results []models.SearchResult, lookup Lookup, threshold float64) models.RetrievalOutcome {
	if len(results) == 0 {
		return sentinel(models.OutcomeNoMatch)
	}
	top := results[0]
	conf := Confidence(top.Score)
	question := lookup.QuestionAt(top.ID)
	if conf < threshold {
		return models.RetrievalOutcome{
			Answer:          models.ClarifyMessage,
			Confidence:      conf,
			MatchedQuestion: question,
			Kind:            models.OutcomeLowConfidence,
		}
	}
	return models.RetrievalOutcome{
		Answer:          lookup.AnswerAt(top.ID),
		Confidence:      conf,
		MatchedQuestion: question,
		Kind:            models.OutcomeAnswered,
	}
}

func sentinel(kind models.OutcomeKind) models.RetrievalOutcome {
	var answer string
	switch kind {
	case models.OutcomeNotReady:
		answer = models.NotReadyMessage
	case models.OutcomeNoMatch:
		answer = models.NoMatchMessage
	default:
		answer = models.ProcessingErrorMessage
	}
	return models.RetrievalOutcome{Answer: answer, Kind: kind}
}
