package scripting

import (
	"fmt"
	"strings"

	"newsreel/internal/queue"
	"newsreel/internal/services/llm"
)

// scriptSystemPrompt pins the model into JSON-only scriptwriter mode.
const scriptSystemPrompt = "You are a viral news scriptwriter. You respond with valid JSON only, never with conversational text."

// buildScriptPrompt renders the generation request for one story. The
// constraints mirror what the downstream stages can actually use: a single
// narration that cites its source and exactly four image-safe scene prompts.
func buildScriptPrompt(job *queue.Job) string {
	source := strings.TrimSpace(job.NewsSource)
	if source == "" {
		source = "verified sources"
	}
	published := strings.TrimSpace(job.PublishedDate)
	if published == "" {
		published = "recently"
	}

	var b strings.Builder
	b.WriteString("Create a fast-paced 60-second video script.\n\n")
	fmt.Fprintf(&b, "NEWS TITLE: %s\n", strings.TrimSpace(job.Title))
	fmt.Fprintf(&b, "PUBLISHED DATE: %s\n", published)
	fmt.Fprintf(&b, "SOURCE: %s\n", source)
	fmt.Fprintf(&b, "CONTENT: %s\n\n", strings.TrimSpace(job.Content))
	b.WriteString("Constraints:\n")
	b.WriteString("1. Output MUST be ONLY valid JSON.\n")
	b.WriteString("2. No conversational text outside the JSON.\n")
	fmt.Fprintf(&b, "3. Include exactly %d visual scene prompts for image generation.\n", queue.SceneCount)
	fmt.Fprintf(&b, "4. The narration MUST explicitly mention the source (\"According to %s...\") to build trust.\n", source)
	b.WriteString("5. CRITICAL: NEVER request maps, specific country flags, or text in the visual prompts. Describe symbolic human actions or objects instead (e.g., 'two diplomats shaking hands' instead of 'the flags of two nations').\n\n")
	b.WriteString("Required JSON structure:\n")
	b.WriteString(`{"narration_script": "Engaging voiceover text...", "visual_prompts": ["Scene 1 description", "Scene 2 description", "Scene 3 description", "Scene 4 description"]}`)
	return b.String()
}

type scriptPayload struct {
	NarrationScript string   `json:"narration_script"`
	VisualPrompts   []string `json:"visual_prompts"`
}

// decodeScript parses the model response into a queue.Script. Shape
// validation is the caller's concern; this only handles decoding quirks.
func decodeScript(content string) (*queue.Script, error) {
	var payload scriptPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(payload.VisualPrompts))
	for _, prompt := range payload.VisualPrompts {
		prompts = append(prompts, strings.TrimSpace(prompt))
	}
	return &queue.Script{
		Narration:     strings.TrimSpace(payload.NarrationScript),
		VisualPrompts: prompts,
	}, nil
}
