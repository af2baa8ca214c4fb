package constant

const DefaultChatModel = "stepfun/step-3.5-flash:free"

// ChatModel is one entry of the curated model catalog exposed to the UI.
type ChatModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
}

var ChatModels = []ChatModel{
	// OpenRouter (Fastest)
	{
		ID:          "stepfun/step-3.5-flash:free",
		Name:        "StepFun 3.5 Flash",
		Provider:    "openrouter",
		Description: "Ultra-fast response times via OpenRouter",
	},
	// Google
	{
		ID:          "google/gemini-3-flash-preview",
		Name:        "Gemini 3 Flash",
		Provider:    "google",
		Description: "Pro-level intelligence at Flash speed",
	},
	{
		ID:          "google/gemini-3-pro-preview",
		Name:        "Gemini 3 Pro",
		Provider:    "google",
		Description: "Advanced reasoning for complex tasks",
	},
}

// ModelsByProvider groups the catalog for the model picker UI.
func ModelsByProvider() map[string][]ChatModel {
	grouped := make(map[string][]ChatModel)
	for _, model := range ChatModels {
		grouped[model.Provider] = append(grouped[model.Provider], model)
	}
	return grouped
}
