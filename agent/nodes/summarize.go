package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

// FallbackSummary stands in when the summarizer model fails. The
// evidence already collected stays on the session either way.
const FallbackSummary = "I wasn't able to synthesize a full diagnosis this time. The evidence gathered during this turn has been recorded; please retry, or narrow the question to a specific entity."

const summaryFailedNote = "Note: the diagnosis step failed, so the response below is a best-effort fallback."

// SummarizeFindings asks the summarizer for a diagnosis over the
// transcript and analysis results. A model failure downgrades to the
// fallback summary rather than failing the turn.
func SummarizeFindings(ctx context.Context, in *GraphState, summarizer contractx.Summarizer) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: summarization requires a session", contractx.ErrValidation)
	}
	st := in.Session

	summary, err := summarizer.Summarize(ctx, contractx.SummaryRequest{
		Transcript:      st.Transcript(),
		UserQuery:       st.UserQuery,
		AnalysisResults: st.AnalysisResults,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("summarizer failed, using fallback summary")
		st.AppendAssistant(summaryFailedNote)
		summary = FallbackSummary
		in.FallbackSummary = true
	}
	st.FinalSummary = summary
	return in, nil
}
