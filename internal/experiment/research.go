package experiment

import (
	"context"
	"errors"
	"strings"

	"dsbench/internal/actions"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
	"dsbench/internal/workspace"
)

// ResearchLogName is the workspace file the research log lives in.
const ResearchLogName = "research_log.log"

const (
	noCasesText  = "No relevant cases found. Please proceed with basic implementation."
	baselinePlan = "Proceed with basic implementation: Load the data, perform basic preprocessing, and train a simple model to establish a baseline."
	decisionTag  = "[Decision]:"
	caseCount    = 5
)

// CaseRetriever finds past cases relevant to a research problem.
type CaseRetriever interface {
	Retrieve(ctx context.Context, problem, experimentLog string, k int) ([]string, error)
}

// NoCases is the empty case base.
type NoCases struct{}

// Retrieve implements CaseRetriever.
func (NoCases) Retrieve(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

// AppendResearchLog appends content and a newline to the research log.
func (r *Runner) AppendResearchLog(ctx context.Context, inv actions.Invoker, content string) (string, error) {
	_, err := inv.InvokeKind(ctx, actions.AppendFile, actions.Args{"file_name": ResearchLogName, "content": content + "\n"})
	if err != nil {
		return "", err
	}
	return "Successfully appended to research log", nil
}

// readResearchLog returns the research log, or "" when none was written yet.
func readResearchLog(ctx context.Context, inv actions.Invoker) (string, error) {
	res, err := inv.InvokeKind(ctx, actions.ReadFile, actions.Args{"file_name": ResearchLogName})
	if errors.Is(err, workspace.ErrNotFound) {
		return "", nil
	}
	return res.Observation, err
}

// Reflection reflects on things with the research log as context.
func (r *Runner) Reflection(ctx context.Context, inv actions.Invoker, things string) (string, error) {
	researchLog, err := readResearchLog(ctx, inv)
	if err != nil {
		return "", err
	}
	text, err := r.fast(ctx, reflectionPrompt(r.cfg.ResearchProblem, researchLog, things))
	if err != nil {
		return "", err
	}
	return "Reflection: " + text + "\n", nil
}

// RetrieveResearchLog summarizes what in the research log matters for plan.
func (r *Runner) RetrieveResearchLog(ctx context.Context, inv actions.Invoker, plan string) (string, error) {
	researchLog, err := readResearchLog(ctx, inv)
	if err != nil {
		return "", err
	}
	return r.fast(ctx, retrievalPrompt(r.cfg.ResearchProblem, plan, researchLog))
}

// PlanExperiment decides the next experiment step, guided by the most
// relevant past cases. It falls back to a baseline plan when the model fails
// or answers without a decision.
func (r *Runner) PlanExperiment(ctx context.Context, experimentLog string) string {
	problem := r.cfg.ResearchProblem

	cases := noCasesText
	found, err := r.cases.Retrieve(ctx, problem, experimentLog, caseCount)
	switch {
	case err != nil:
		logging.Warn("case retrieval failed", "error", err)
	case len(found) > 0:
		cases = strings.Join(found, "\n\n")
	}

	reply, err := r.gen.Generate(ctx, llm.Request{
		Prompt:    planPrompt(problem, experimentLog, cases),
		Model:     r.cfg.EditModel,
		MaxTokens: r.cfg.MaxTokens,
	})
	if err != nil {
		logging.Warn("experiment planning failed, using baseline plan", "error", err)
		return baselinePlan
	}

	decision, ok := extractDecision(reply)
	if !ok {
		logging.Warn("plan has no decision, using baseline plan")
		return baselinePlan
	}
	return decision + "\n"
}

// extractDecision returns the text after the first decision tag, up to the
// next one if the model repeated it.
func extractDecision(reply string) (string, bool) {
	_, after, ok := strings.Cut(reply, decisionTag)
	if !ok {
		return "", false
	}
	if i := strings.Index(after, decisionTag); i >= 0 {
		after = after[:i]
	}
	after = strings.TrimSpace(after)
	return after, after != ""
}
