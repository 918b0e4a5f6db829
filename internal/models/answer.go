package models

// Answer is the pipeline's response to one question.
type Answer struct {
	Text    string      `json:"text"`
	ModelID string      `json:"model_id"`
	Query   string      `json:"query"`
	Sources []*Fragment `json:"sources"`
}

// AnswerRequest is the body of an answer request. Either the concrete LLMID and
// PromptTemplate or the driver's option codes may be given; empty fields fall back
// to the pipeline defaults.
type AnswerRequest struct {
	LLMID          string `json:"llm_id,omitempty"`
	PromptTemplate string `json:"prompt_template,omitempty"`
	LLMOption      string `json:"llm_option,omitempty"`
	PromptOption   string `json:"prompt_option,omitempty"`
	Query          string `json:"query"`
}
