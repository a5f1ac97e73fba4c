package config

import (
	"flag"
	"path/filepath"
)

type Config struct {
	FeedURL      string
	AssistantURL string
	DataDir      string
	ModelsDir    string
	Port         string
	MicDevice    string
	NoVoice      bool
}

func Load() *Config {
	feedURL := flag.String("feed", "https://feeds.megaphone.fm/hubermanlab", "Podcast RSS feed URL")
	assistantURL := flag.String("assistant", "http://localhost:5000", "Assistant backend base URL")
	dataDir := flag.String("data", "data", "Directory for saved clips and Q&A")
	modelsDir := flag.String("models", "", "Directory for wake-word models (default: dataDir/models)")
	port := flag.String("port", "8080", "Server port")
	micDevice := flag.String("mic", "", "Microphone device name (default device if empty)")
	noVoice := flag.Bool("no-voice", false, "Disable microphone and wake-word detection")
	flag.Parse()

	finalModelsDir := *modelsDir
	if finalModelsDir == "" {
		finalModelsDir = filepath.Join(*dataDir, "models")
	}

	return &Config{
		FeedURL:      *feedURL,
		AssistantURL: *assistantURL,
		DataDir:      *dataDir,
		ModelsDir:    finalModelsDir,
		Port:         *port,
		MicDevice:    *micDevice,
		NoVoice:      *noVoice,
	}
}
