package annotation

import (
	"subcon/internal/config"
	"subcon/internal/types"
)

// Apply installs the annotators cfg selects into caps. The llm modes use gen
// and fall back to the heuristics when gen is nil.
func Apply(caps *types.Capabilities, cfg config.AnnotationConfig, gen types.Generator) {
	heuristic := NewHeuristicAnnotator(cfg.MaxKeywords)
	if cfg.Mode == "llm" && gen != nil {
		llm := &LLMAnnotator{Gen: gen, MaxKeywords: cfg.MaxKeywords}
		caps.Topics, caps.Keywords = llm, llm
	} else {
		caps.Topics, caps.Keywords = heuristic, heuristic
	}

	if cfg.Followups == "llm" && gen != nil {
		caps.Followups = &LLMFollowups{Gen: gen, Max: cfg.MaxFollowups}
	} else {
		caps.Followups = HeuristicFollowups{Max: cfg.MaxFollowups}
	}
}
