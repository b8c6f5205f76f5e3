package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadEvaluateFile parses and validates a YAML question set.
func loadEvaluateFile(path string) (*evaluateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var spec evaluateFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(spec.Questions) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	if len(spec.GroundTruthAnswers) > 0 && len(spec.GroundTruthAnswers) != len(spec.Questions) {
		return nil, fmt.Errorf("ground_truth_answers must match questions (%d vs %d)",
			len(spec.GroundTruthAnswers), len(spec.Questions))
	}
	if len(spec.RelevantDocIDs) > 0 && len(spec.RelevantDocIDs) != len(spec.Questions) {
		return nil, fmt.Errorf("relevant_doc_ids must match questions (%d vs %d)",
			len(spec.RelevantDocIDs), len(spec.Questions))
	}

	return &spec, nil
}
