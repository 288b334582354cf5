package domain

import "time"

// InsightIDPrefix marks insight documents in search results.
const InsightIDPrefix = "insight:"

// Default insight classification.
const (
	DefaultInsightCategory   = "general"
	DefaultInsightImportance = "medium"
)

// Insight is a short, permanent fact or decision. Unlike chunks, insights
// are never archived.
type Insight struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Importance string    `json:"importance"`
	Tags       TagSet    `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentID returns the identifier used for the insight in search.
func (i *Insight) DocumentID() string {
	return InsightIDPrefix + i.ID
}

// InsightPatch lists the fields to change on an insight. Nil fields are
// left untouched. ReplaceTags wins over AddTags and RemoveTags.
type InsightPatch struct {
	Content     *string
	Category    *string
	Importance  *string
	ReplaceTags *TagSet
	AddTags     TagSet
	RemoveTags  TagSet
}

// IsEmpty reports whether the patch changes nothing.
func (p InsightPatch) IsEmpty() bool {
	return p.Content == nil && p.Category == nil && p.Importance == nil &&
		p.ReplaceTags == nil && p.AddTags.Len() == 0 && p.RemoveTags.Len() == 0
}

// InsightStats summarises the stored insights.
type InsightStats struct {
	Total        int            `json:"total"`
	ByCategory   map[string]int `json:"by_category"`
	ByImportance map[string]int `json:"by_importance"`
	FirstCreated time.Time      `json:"first_created"`
	LastUpdated  time.Time      `json:"last_updated"`
}
