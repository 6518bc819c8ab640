package commands

// Command is the structured form of a natural-language instruction
type Command struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// Result is returned for an executed command
type Result struct {
	Action  string      `json:"action"`
	Command string      `json:"command"`
	Data    interface{} `json:"data"`
}

// DeleteResult is the payload of a delete_user result
type DeleteResult struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Removed int    `json:"removed"`
}

// TranscriptionResult is returned by the transcribe endpoint
type TranscriptionResult struct {
	Text string `json:"text"`
}

// Config configures the language model collaborators
type Config struct {
	// Provider is "openai" or "json"
	Provider           string
	APIKey             string
	BaseURL            string
	ChatModel          string
	TranscriptionModel string
	TimeoutSeconds     int
}
