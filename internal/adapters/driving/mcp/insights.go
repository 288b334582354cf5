package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// RememberInput is the input schema for the rlm_remember tool.
type RememberInput struct {
	Content    string `json:"content" jsonschema:"the fact or decision to keep"`
	Category   string `json:"category,omitempty" jsonschema:"free-form category (default general)"`
	Importance string `json:"importance,omitempty" jsonschema:"low, medium, high or critical (default medium)"`
	Tags       string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
}

// InsightOutput is the output schema of tools returning one insight.
type InsightOutput struct {
	Status  domain.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Insight *InsightView  `json:"insight,omitempty"`
}

// RecallInput is the input schema for the rlm_recall tool.
type RecallInput struct {
	Query      string `json:"query,omitempty" jsonschema:"text to look for; empty returns the newest insights"`
	Category   string `json:"category,omitempty" jsonschema:"only recall this category"`
	Importance string `json:"importance,omitempty" jsonschema:"only recall this importance"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of insights (default 10)"`
}

// RecallHitView is a recalled insight with its relevance.
type RecallHitView struct {
	Insight   InsightView `json:"insight"`
	Relevance float64     `json:"relevance"`
}

// RecallOutput is the output schema for the rlm_recall tool.
type RecallOutput struct {
	Status   domain.Status   `json:"status"`
	Insights []RecallHitView `json:"insights"`
	Count    int             `json:"count"`
}

// UpdateInsightInput is the input schema for the rlm_update_insight tool.
// Omitted fields are left unchanged.
type UpdateInsightInput struct {
	InsightID  string  `json:"insight_id" jsonschema:"the insight to update"`
	Content    *string `json:"content,omitempty" jsonschema:"new content"`
	Category   *string `json:"category,omitempty" jsonschema:"new category"`
	Importance *string `json:"importance,omitempty" jsonschema:"new importance"`
	Tags       *string `json:"tags,omitempty" jsonschema:"comma-separated tags replacing all current tags"`
	AddTags    string  `json:"add_tags,omitempty" jsonschema:"comma-separated tags to add"`
	RemoveTags string  `json:"remove_tags,omitempty" jsonschema:"comma-separated tags to remove"`
}

// ForgetInput is the input schema for the rlm_forget tool.
type ForgetInput struct {
	InsightID string `json:"insight_id" jsonschema:"the insight to delete"`
}

// ForgetOutput is the output schema for the rlm_forget tool.
type ForgetOutput struct {
	Status    domain.Status `json:"status"`
	Message   string        `json:"message,omitempty"`
	InsightID string        `json:"insight_id"`
}

func (s *Server) registerInsightTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_remember",
		Description: "Save a short permanent fact or decision; insights are never archived",
	}, s.handleRemember)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_recall",
		Description: "Find saved insights by text, category or importance",
	}, s.handleRecall)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_update_insight",
		Description: "Edit an insight's content, classification or tags",
	}, s.handleUpdateInsight)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_forget",
		Description: "Delete an insight",
	}, s.handleForget)
}

func (s *Server) handleRemember(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RememberInput,
) (*mcp.CallToolResult, InsightOutput, error) {
	in, err := s.ports.Insights.Remember(ctx, driving.InsightRequest{
		Content:    input.Content,
		Category:   input.Category,
		Importance: input.Importance,
		Tags:       domain.ParseTagList(input.Tags),
	})
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, InsightOutput{Status: status, Message: msg}, toolErr
	}
	return nil, InsightOutput{Status: domain.StatusSaved, Insight: insightView(in)}, nil
}

func (s *Server) handleRecall(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecallInput,
) (*mcp.CallToolResult, RecallOutput, error) {
	hits, err := s.ports.Insights.Recall(ctx, driving.RecallQuery{
		Query:      input.Query,
		Category:   input.Category,
		Importance: input.Importance,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, RecallOutput{}, err
	}
	out := RecallOutput{
		Status:   domain.StatusSuccess,
		Insights: make([]RecallHitView, len(hits)),
		Count:    len(hits),
	}
	for i := range hits {
		out.Insights[i] = RecallHitView{
			Insight:   *insightView(&hits[i].Insight),
			Relevance: hits[i].Relevance,
		}
	}
	return nil, out, nil
}

func (s *Server) handleUpdateInsight(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateInsightInput,
) (*mcp.CallToolResult, InsightOutput, error) {
	patch := domain.InsightPatch{
		Content:    input.Content,
		Category:   input.Category,
		Importance: input.Importance,
		AddTags:    domain.ParseTagList(input.AddTags),
		RemoveTags: domain.ParseTagList(input.RemoveTags),
	}
	if input.Tags != nil {
		replace := domain.ParseTagList(*input.Tags)
		patch.ReplaceTags = &replace
	}

	in, changed, err := s.ports.Insights.Update(ctx, input.InsightID, patch)
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, InsightOutput{Status: status, Message: msg}, toolErr
	}
	status := domain.StatusUpdated
	if !changed {
		status = domain.StatusNoChange
	}
	return nil, InsightOutput{Status: status, Insight: insightView(in)}, nil
}

func (s *Server) handleForget(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ForgetInput,
) (*mcp.CallToolResult, ForgetOutput, error) {
	if err := s.ports.Insights.Forget(ctx, input.InsightID); err != nil {
		status, msg, toolErr := failure(err)
		return nil, ForgetOutput{Status: status, Message: msg, InsightID: input.InsightID}, toolErr
	}
	return nil, ForgetOutput{Status: domain.StatusDeleted, InsightID: input.InsightID}, nil
}
