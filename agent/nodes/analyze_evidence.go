package nodes

import (
	"fmt"
	"sort"
	"strings"

	analysisx "github.com/suthimate/offerlens/agent/analysis"
	contractx "github.com/suthimate/offerlens/agent/contract"
)

// Analysis result keys. The summarizer renders them as section
// headings, so they read as labels rather than identifiers.
const (
	analysisLogErrors     = "log_errors"
	analysisLogWarnings   = "log_warnings"
	analysisEntityHistory = "entity_history"
	analysisOfferCatalog  = "offer_catalog"
	analysisOfferPrices   = "offer_prices"
	analysisSimilarCases  = "similar_past_cases"
)

const maxSummaryExcerpt = 200

// AnalyzeEvidence runs the deterministic analyzers over whatever the
// fetch stage collected. It is pure over the state and writes only the
// analysis map.
func AnalyzeEvidence(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: evidence analysis requires a session", contractx.ErrValidation)
	}
	st := in.Session

	st.SetAnalysis(analysisLogErrors, analysisx.AnalyzeErrors(st.DatadogLogs, st.EntityIDs))
	st.SetAnalysis(analysisLogWarnings, analysisx.AnalyzeWarnings(st.DatadogLogs, st.EntityIDs))
	st.SetAnalysis(analysisEntityHistory, analysisx.AnalyzeHistory(st.EntityHistory, analysisx.DefaultHistoryRules(), in.Now))

	if len(st.GenieOfferDetails)+len(st.OfferServiceDetails) > 0 {
		st.SetAnalysis(analysisOfferCatalog, renderCatalog(st.GenieOfferDetails, st.OfferServiceDetails))
	}
	if len(st.OfferPriceDetails) > 0 {
		st.SetAnalysis(analysisOfferPrices, renderPrices(st.OfferPriceDetails))
	}
	if len(in.SimilarCases) > 0 {
		st.SetAnalysis(analysisSimilarCases, renderSimilarCases(in.SimilarCases))
	}
	return in, nil
}

func renderCatalog(genie, offerService []contractx.CatalogOffer) string {
	var b strings.Builder
	if len(genie) > 0 {
		b.WriteString("Genie catalog records:\n")
		for _, o := range genie {
			writeOffer(&b, o)
		}
	}
	if len(offerService) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Offer service records:\n")
		for _, o := range offerService {
			writeOffer(&b, o)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeOffer(b *strings.Builder, o contractx.CatalogOffer) {
	fmt.Fprintf(b, "- %s: %q status=%s source=%s", o.ID, o.Name, o.Status, o.Source)
	for _, k := range sortedKeys(o.Attributes) {
		fmt.Fprintf(b, " %s=%s", k, o.Attributes[k])
	}
	b.WriteString("\n")
}

func renderPrices(quotes []contractx.PriceQuote) string {
	var b strings.Builder
	b.WriteString("Offer prices:\n")
	for _, q := range quotes {
		fmt.Fprintf(&b, "- %s: %v %s per %s\n", q.OfferID, q.Amount, q.CurrencyCode, q.BillingPeriod)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSimilarCases(cases []contractx.DiagnosticCase) string {
	var b strings.Builder
	b.WriteString("Previously resolved similar cases:\n")
	for _, c := range cases {
		summary := strings.TrimSpace(c.FinalSummary)
		if len(summary) > maxSummaryExcerpt {
			summary = summary[:maxSummaryExcerpt] + "..."
		}
		fmt.Fprintf(&b, "- [%s] %q: %s\n", c.Timestamp.Format("2006-01-02"), c.UserQuery, summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
