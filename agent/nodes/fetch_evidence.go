package nodes

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

const (
	toolDatadogLogs   = "datadog_logs"
	toolEntityHistory = "entity_history"
	toolGenieOffer    = "genie_offer"
	toolOfferService  = "offer_service"
	toolOfferPrice    = "offer_price"

	historyFetchLimit = 50

	// DefaultFetchTimeout bounds each evidence operation independently
	// so one slow backend cannot stall the whole turn.
	DefaultFetchTimeout = 30 * time.Second
)

// statePatch is the result of one evidence operation. Operations never
// write to the session directly; patches are merged in a fixed order
// after all operations finish, which keeps reruns deterministic.
type statePatch struct {
	logs    []contractx.LogRecord
	logsSet bool

	history    []contractx.VersionDiff
	historySet bool

	genieOffers []contractx.CatalogOffer

	offerServiceOffers []contractx.CatalogOffer
	offerServiceSet    bool

	prices []contractx.PriceQuote

	analysis map[string]string
	messages []statex.Message
}

type fetchOp struct {
	tool string
	run  func(ctx context.Context) statePatch
}

// FetchEvidence selects the operations the session fields call for and
// runs them concurrently. A failing operation yields an annotation
// patch instead of an error; only a nil backend for a selected
// operation aborts, since that is a wiring bug.
func FetchEvidence(ctx context.Context, in *GraphState, backends contractx.Backends, opTimeout time.Duration) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: evidence fetch requires a session", contractx.ErrValidation)
	}
	if opTimeout <= 0 {
		opTimeout = DefaultFetchTimeout
	}
	st := in.Session

	ops, err := selectOperations(st, backends)
	if err != nil {
		return nil, err
	}

	patches := make([]statePatch, len(ops))
	g := new(errgroup.Group)
	for i, op := range ops {
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, opTimeout)
			defer cancel()
			patches[i] = op.run(opCtx)
			return nil
		})
	}
	_ = g.Wait()

	mergePatches(in, ops, patches)
	return in, nil
}

func selectOperations(st *statex.ConversationState, backends contractx.Backends) ([]fetchOp, error) {
	ids := append([]string(nil), st.EntityIDs...)
	if len(ids) == 0 {
		return nil, nil
	}

	entityType := st.EntityType
	env := st.Environment
	timeRange := st.TimeRange
	query := st.UserQuery

	var ops []fetchOp
	need := func(name string, client any) error {
		if client == nil {
			return fmt.Errorf("%w: %s backend is not configured", contractx.ErrValidation, name)
		}
		return nil
	}

	if err := need(toolEntityHistory, backends.History); err != nil {
		return nil, err
	}
	ops = append(ops, historyOp(backends.History, entityType, ids))

	if err := need(toolDatadogLogs, backends.Logs); err != nil {
		return nil, err
	}
	ops = append(ops, logsOp(backends.Logs, ids, timeRange, query))

	if entityType == contractx.EntityOffer {
		if err := need(toolGenieOffer, backends.Genie); err != nil {
			return nil, err
		}
		for _, id := range ids {
			ops = append(ops, genieOp(backends.Genie, id, env))
		}

		if err := need(toolOfferService, backends.OfferService); err != nil {
			return nil, err
		}
		ops = append(ops, offerServiceOp(backends.OfferService, ids, env))

		if st.QueryCategory == contractx.CategoryOfferPrice {
			if err := need(toolOfferPrice, backends.Prices); err != nil {
				return nil, err
			}
			for _, id := range ids {
				ops = append(ops, priceOp(backends.Prices, id, env))
			}
		}
	}
	return ops, nil
}

func historyOp(client contractx.HistoryClient, entityType contractx.EntityType, ids []string) fetchOp {
	return fetchOp{tool: toolEntityHistory, run: func(ctx context.Context) statePatch {
		var all []contractx.VersionDiff
		for _, id := range ids {
			diffs, err := client.FetchHistory(ctx, entityType, id, historyFetchLimit)
			if err != nil {
				return failurePatch(toolEntityHistory, "entity change history", err)
			}
			all = append(all, diffs...)
		}
		return statePatch{
			history:    all,
			historySet: true,
			messages:   []statex.Message{statusMessage(toolEntityHistory, fmt.Sprintf("Retrieved %d history records.", len(all)))},
		}
	}}
}

func logsOp(client contractx.LogSearcher, ids []string, timeRange, query string) fetchOp {
	return fetchOp{tool: toolDatadogLogs, run: func(ctx context.Context) statePatch {
		logs, err := client.FetchLogs(ctx, ids, timeRange, query)
		if err != nil {
			return failurePatch(toolDatadogLogs, "platform logs", err)
		}
		return statePatch{
			logs:     logs,
			logsSet:  true,
			messages: []statex.Message{statusMessage(toolDatadogLogs, fmt.Sprintf("Retrieved %d log records.", len(logs)))},
		}
	}}
}

func genieOp(client contractx.CatalogClient, id string, env contractx.Environment) fetchOp {
	return fetchOp{tool: toolGenieOffer, run: func(ctx context.Context) statePatch {
		offer, err := client.FetchOffer(ctx, id, env)
		if err != nil {
			return failurePatch(toolGenieOffer, "genie offer record for "+id, err)
		}
		patch := statePatch{
			messages: []statex.Message{statusMessage(toolGenieOffer+":"+id, "Retrieved genie offer record for "+id+".")},
		}
		if offer != nil {
			patch.genieOffers = []contractx.CatalogOffer{*offer}
		}
		return patch
	}}
}

func offerServiceOp(client contractx.OfferServiceClient, ids []string, env contractx.Environment) fetchOp {
	return fetchOp{tool: toolOfferService, run: func(ctx context.Context) statePatch {
		offers, err := client.FetchOffers(ctx, ids, env)
		if err != nil {
			return failurePatch(toolOfferService, "offer service records", err)
		}
		return statePatch{
			offerServiceOffers: offers,
			offerServiceSet:    true,
			messages:           []statex.Message{statusMessage(toolOfferService, fmt.Sprintf("Retrieved %d offer service records.", len(offers)))},
		}
	}}
}

func priceOp(client contractx.PriceClient, id string, env contractx.Environment) fetchOp {
	return fetchOp{tool: toolOfferPrice, run: func(ctx context.Context) statePatch {
		quote, err := client.FetchOfferPrice(ctx, id, env)
		if err != nil {
			return failurePatch(toolOfferPrice, "price for offer "+id, err)
		}
		return statePatch{
			prices:   []contractx.PriceQuote{quote},
			messages: []statex.Message{statusMessage(toolOfferPrice+":"+id, "Retrieved price for offer "+id+".")},
		}
	}}
}

// failurePatch converts an operation failure into evidence the later
// stages can see: an analysis annotation plus a status message. The
// turn keeps going with whatever the other operations returned.
func failurePatch(tool, what string, err error) statePatch {
	note := fmt.Sprintf("Could not retrieve %s: %v", what, err)
	return statePatch{
		analysis: map[string]string{tool: note},
		messages: []statex.Message{statusMessage(tool, note)},
	}
}

// statusMessage tags fetch progress messages with a tool-call id so
// duplicate reports from one fetch round deduplicate by identity.
// mergePatches salts the id with the turn number, so a later turn's
// fresh fetch keeps its own status line.
func statusMessage(id, content string) statex.Message {
	return statex.Message{
		Role:       statex.RoleAssistant,
		Content:    content,
		ToolCallID: "fetch:" + id,
	}
}

// mergePatches folds the per-operation results into the session in the
// order the operations were selected. Human-role messages are dropped;
// operations report, they never speak for the user.
func mergePatches(in *GraphState, ops []fetchOp, patches []statePatch) {
	st := in.Session
	var msgs []statex.Message
	for i, patch := range patches {
		if patch.logsSet {
			st.DatadogLogs = patch.logs
		}
		if patch.historySet {
			st.EntityHistory = patch.history
		}
		st.GenieOfferDetails = append(st.GenieOfferDetails, patch.genieOffers...)
		if patch.offerServiceSet {
			st.OfferServiceDetails = patch.offerServiceOffers
		}
		st.OfferPriceDetails = append(st.OfferPriceDetails, patch.prices...)
		for k, v := range patch.analysis {
			st.SetAnalysis(k, v)
		}
		for _, m := range patch.messages {
			if m.Role == statex.RoleHuman {
				continue
			}
			if m.ToolCallID != "" {
				m.ToolCallID = fmt.Sprintf("%s@%d", m.ToolCallID, st.TurnCount())
			}
			msgs = append(msgs, m)
		}
		in.ToolsUsed = appendTool(in.ToolsUsed, ops[i].tool)
	}
	st.Messages = statex.DedupAppend(st.Messages, msgs...)
}

func appendTool(tools []string, tool string) []string {
	for _, t := range tools {
		if t == tool {
			return tools
		}
	}
	return append(tools, tool)
}
