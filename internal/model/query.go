package model

// AssistantRequest is the inbound chat message
type AssistantRequest struct {
	Message string `json:"message" binding:"required"`
}

// AssistantResponse is the result of one pipeline run
type AssistantResponse struct {
	RecommendationID string          `json:"recommendation_id"`
	Reply            string          `json:"reply"`
	Intent           Intent          `json:"intent"`
	Preferences      *Preferences    `json:"preferences"`
	Products         []ScoredProduct `json:"products"`
	Strategies       []SlotResult    `json:"strategies"`
	Took             int64           `json:"took_ms"` // Response time in milliseconds
}

// FeedbackRequest represents user feedback on a recommendation
type FeedbackRequest struct {
	RecommendationID string `json:"recommendation_id" binding:"required"`
	ProductID        string `json:"product_id" binding:"required"`
	Action           string `json:"action" binding:"required"` // click, add_to_cart, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FeedbackActions are the accepted feedback action values
var FeedbackActions = map[string]bool{
	"click":        true,
	"add_to_cart":  true,
	"view_details": true,
}

// RecommendationLog is one answered request, stored for feedback analysis
type RecommendationLog struct {
	ID          string       `json:"id" db:"id"`
	Message     string       `json:"message" db:"message"`
	Intent      Intent       `json:"intent"`
	Preferences *Preferences `json:"preferences"`
	ProductIDs  []string     `json:"product_ids"`
	Strategies  []SlotResult `json:"strategies"`
	Took        int64        `json:"took_ms" db:"took_ms"`
}
