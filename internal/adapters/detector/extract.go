package detector

import (
	"encoding/json"
	"fmt"
	"strings"
)

// detectionPrompt asks the model to judge whether the text reads as
// machine generated and to answer in strict JSON.
const detectionPrompt = `You are a forensic text analyst. Estimate the probability that the following email body was written by an AI language model rather than a human.

Respond with only a JSON object of the form {"score": <number between 0.0 and 1.0>, "explanation": "<one sentence>"} and nothing else.

Email body:
%s`

type modelVerdict struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// parseVerdict decodes the model's answer. Models sometimes wrap the JSON
// in prose or code fences, so when direct decoding fails the substring
// between the first "{" and the last "}" is retried.
func parseVerdict(content string) (modelVerdict, error) {
	var verdict modelVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err == nil {
		return verdict, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return verdict, fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return verdict, fmt.Errorf("failed to decode model verdict: %w", err)
	}
	return verdict, nil
}
