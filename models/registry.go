// Package models manages the wake-word spotter models: which files each
// model needs, where to fetch them, and keeping a local copy current.
package models

import "path/filepath"

// ModelFile is one file of a model distribution.
type ModelFile struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// ModelInfo describes a downloadable keyword-spotting model.
type ModelInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Files       []ModelFile `json:"files"`
}

// KWSModelID is the default keyword-spotting model.
const KWSModelID = "kws-zipformer-gigaspeech-3.3M"

const kwsRepoBase = "https://huggingface.co/pkufool/sherpa-onnx-kws-zipformer-gigaspeech-3.3M-2024-01-01/resolve/main/"

// Registry lists the models the app knows how to fetch.
var Registry = []ModelInfo{
	{
		ID:          KWSModelID,
		Name:        "Zipformer KWS (GigaSpeech, 3.3M)",
		Description: "Small English keyword spotter, runs four phrase streams in real time on CPU",
		Files: []ModelFile{
			{Name: "encoder-epoch-12-avg-2-chunk-16-left-64.onnx", URL: kwsRepoBase + "encoder-epoch-12-avg-2-chunk-16-left-64.onnx"},
			{Name: "decoder-epoch-12-avg-2-chunk-16-left-64.onnx", URL: kwsRepoBase + "decoder-epoch-12-avg-2-chunk-16-left-64.onnx"},
			{Name: "joiner-epoch-12-avg-2-chunk-16-left-64.onnx", URL: kwsRepoBase + "joiner-epoch-12-avg-2-chunk-16-left-64.onnx"},
			{Name: "tokens.txt", URL: kwsRepoBase + "tokens.txt"},
		},
	},
}

// Lookup returns the registry entry for id.
func Lookup(id string) (ModelInfo, bool) {
	for _, m := range Registry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// FilePath is where a model file lives locally.
func FilePath(dir, modelID, name string) string {
	return filepath.Join(dir, modelID, name)
}
