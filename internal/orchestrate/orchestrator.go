package orchestrate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/search"
)

// Searcher fetches supporting links for reasoning output.
type Searcher interface {
	SearchText(ctx context.Context, text string) (string, []search.Result, error)
}

// StatusFunc receives status messages destined for the session.
type StatusFunc func(status Status)

// Observer receives chain outcome and stage timing signals.
type Observer interface {
	RecordResolve(outcome string)
	RecordStage(stage string, duration time.Duration)
}

// Orchestrator runs the full resolve side of a dwell event: the two-stage
// remote chain, the secondary resource search, result rendering, and the
// async notebook persist.
type Orchestrator struct {
	client   *Client
	searcher Searcher
	notebook NotebookSink
	obs      Observer
	log      *logging.Logger
}

// NewOrchestrator wires the chain client with its collaborators. searcher
// and notebook may be nil; the corresponding steps are skipped.
func NewOrchestrator(client *Client, searcher Searcher, notebook NotebookSink, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Orchestrator{
		client:   client,
		searcher: searcher,
		notebook: notebook,
		log:      log.Component("orchestrator"),
	}
}

// SetObserver attaches outcome and timing reporting. Nil disables it.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.obs = obs
}

// Execute runs one chain for a resolve event. On failure it emits exactly
// one status through onStatus and returns the error; there is no automatic
// retry. On success it returns the rendered tabbed result and kicks off
// the notebook persist in the background.
func (o *Orchestrator) Execute(ctx context.Context, req CaptureRequest, onStatus StatusFunc) (*ResolveResult, error) {
	result, err := o.client.Run(ctx, req)
	o.observeStages(result)
	if err != nil {
		status := Status{Code: StatusCaptureFailed, Message: "Couldn't process the selected content."}
		if errors.Is(err, ErrReasoningFailed) {
			status = Status{Code: StatusReasoningFailed, Message: "Couldn't generate an explanation."}
		}
		if o.obs != nil {
			o.obs.RecordResolve(status.Code)
		}
		o.emit(onStatus, status)
		o.log.Warn("chain failed", zap.String("stage", result.Stage.String()), zap.Error(err))
		return nil, err
	}
	if o.obs != nil {
		o.obs.RecordResolve("success")
	}

	resolved := &ResolveResult{
		SessionID:      req.SessionID,
		Classification: result.Agents.Classification,
		Explanation:    result.Agents.Explanation,
		Hypothesis:     result.Agents.Hypothesis,
		At:             time.Now(),
	}

	if o.searcher != nil {
		searchStarted := time.Now()
		query, resources, err := o.searcher.SearchText(ctx, secondaryQuerySource(result.Agents))
		if o.obs != nil {
			o.obs.RecordStage("search", time.Since(searchStarted))
		}
		if err != nil {
			// Missing resources degrade the tabbed view; they never fail
			// the resolve.
			o.log.Debug("resource search failed", zap.Error(err))
		} else {
			resolved.Query = query
			resolved.Resources = resources
		}
	}

	if o.notebook != nil {
		go o.persist(req, result, onStatus)
	}

	return resolved, nil
}

func (o *Orchestrator) observeStages(result *ChainResult) {
	if o.obs == nil || result == nil {
		return
	}
	if result.CaptureTook > 0 {
		o.obs.RecordStage("capture", result.CaptureTook)
	}
	if result.ReasoningTook > 0 {
		o.obs.RecordStage("reasoning", result.ReasoningTook)
	}
}

// secondaryQuerySource picks the reasoning text the resource query is
// derived from.
func secondaryQuerySource(agents AgentsData) string {
	if agents.Explanation != "" {
		return agents.Explanation
	}
	if agents.Hypothesis != "" {
		return agents.Hypothesis
	}
	return agents.Classification
}

// persist writes the notebook entry with its own deadline, detached from
// the chain's context. A failure is reported as a status message only.
func (o *Orchestrator) persist(req CaptureRequest, result *ChainResult, onStatus StatusFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry := NotebookEntry{
		SessionID: req.SessionID,
		Title:     noteTitle(result.Agents),
		Snippet:   search.BuildQuery(req.ExtractedText),
		Content:   result.Agents.Explanation,
		Tags:      noteTags(result.Agents),
	}
	if err := o.notebook.Persist(ctx, entry); err != nil {
		o.log.Warn("notebook persist failed", zap.Error(err))
		o.emit(onStatus, Status{Code: StatusNotebookFailed, Message: "Saved explanation could not be stored."})
	}
}

func noteTitle(agents AgentsData) string {
	title := agents.Classification
	if title == "" {
		title = agents.Hypothesis
	}
	if title == "" {
		title = "Resolved context"
	}
	words := strings.Fields(title)
	if len(words) > 10 {
		words = words[:10]
	}
	return strings.Join(words, " ")
}

func noteTags(agents AgentsData) []string {
	if agents.Classification == "" {
		return nil
	}
	return []string{strings.ToLower(strings.ReplaceAll(agents.Classification, " ", "-"))}
}

func (o *Orchestrator) emit(onStatus StatusFunc, status Status) {
	if onStatus != nil {
		onStatus(status)
	}
}
