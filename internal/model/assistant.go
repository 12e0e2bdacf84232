package model

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type SymptomAnalysis struct {
	PossibleConditions []string `json:"possibleConditions"`
	Severity           Severity `json:"severity"`
	Recommendations    []string `json:"recommendations"`
	ShouldSeeDoctor    bool     `json:"shouldSeeDoctor"`
	Urgency            string   `json:"urgency"`
}

type ImageAnalysis struct {
	Description        string   `json:"description"`
	PossibleConditions []string `json:"possibleConditions"`
	Confidence         float64  `json:"confidence"`
	Recommendations    []string `json:"recommendations"`
}

type ChatRequest struct {
	Message  string   `json:"message" binding:"required" validate:"required,max=4000"`
	Context  string   `json:"context" validate:"max=4000"`
	Language Language `json:"language" validate:"omitempty,oneof=en hi"`
}

type SymptomRequest struct {
	Symptoms string   `json:"symptoms" binding:"required" validate:"required,max=4000"`
	Language Language `json:"language" validate:"omitempty,oneof=en hi"`
}

type ImageRequest struct {
	Image    string   `json:"image" binding:"required" validate:"required"`
	Context  string   `json:"context" validate:"max=2000"`
	Language Language `json:"language" validate:"omitempty,oneof=en hi"`
}

type RecommendationRequest struct {
	Age        int      `json:"age" validate:"gte=0,lte=150"`
	Gender     string   `json:"gender" validate:"max=50"`
	Conditions []string `json:"conditions" validate:"max=50,dive,max=200"`
}

// RelayRequest is the body of the minimal chat relay.
type RelayRequest struct {
	Message string `json:"message"`
}

type RelayResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}
