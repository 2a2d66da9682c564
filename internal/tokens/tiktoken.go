package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TiktokenEstimator counts tokens exactly with a BPE encoding. The language
// argument is ignored since the encoding already accounts for script.
type TiktokenEstimator struct {
	encodingName string
	mu           sync.RWMutex
	tke          *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads modelOrEncoding, trying it first as an encoding
// name and then as a model name.
func NewTiktokenEstimator(modelOrEncoding string) (*TiktokenEstimator, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			return nil, fmt.Errorf("tokens: load encoding %q: %w", modelOrEncoding, err)
		}
	}
	return &TiktokenEstimator{encodingName: modelOrEncoding, tke: tke}, nil
}

// Encoding returns the encoding or model name the estimator was built with.
func (e *TiktokenEstimator) Encoding() string { return e.encodingName }

// Estimate returns the exact token count of text.
func (e *TiktokenEstimator) Estimate(text, _ string) int {
	if text == "" {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tke.Encode(text, nil, nil))
}
