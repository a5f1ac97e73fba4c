package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"heyhost/feed"
	"heyhost/internal/api"
	"heyhost/internal/config"
	"heyhost/internal/service"
	"heyhost/models"
	"heyhost/player"
	"heyhost/store"
	"heyhost/voice"

	"github.com/gen2brain/malgo"
)

func main() {
	cfg := config.Load()

	assistant := service.NewAssistantClient(cfg.AssistantURL)
	clips := store.NewClips(cfg.DataDir, assistant)
	qas := store.NewQAs(cfg.DataDir)

	episodes, err := feed.NewFetcher().Fetch(cfg.FeedURL)
	if err != nil {
		log.Printf("[Main] Feed fetch failed, starting with no episodes: %v", err)
	} else {
		log.Printf("[Main] Loaded %d episodes from feed", len(episodes))
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatalf("Failed to init audio context: %v", err)
	}
	defer func() {
		audioCtx.Uninit()
		audioCtx.Free()
	}()

	pl := player.NewController(
		player.NewSpeakerOutput(audioCtx),
		player.NewSpeakerOutput(audioCtx),
	)

	ctx := context.Background()
	go pl.Run(ctx)

	var machine *voice.Machine
	if cfg.NoVoice {
		log.Println("[Main] Voice disabled by flag")
	} else {
		machine = startVoice(ctx, cfg, audioCtx, pl, clips, qas, assistant)
	}

	server := api.NewServer(cfg, clips, qas, pl, machine)
	server.SetEpisodes(episodes)
	server.Start()
}

// startVoice wires the microphone, wake-word detectors and dialogue
// machine. Any failure here disables voice but leaves the rest of the
// app running.
func startVoice(
	ctx context.Context,
	cfg *config.Config,
	audioCtx *malgo.AllocatedContext,
	pl *player.Controller,
	clips *store.Clips,
	qas *store.QAs,
	assistant *service.AssistantClient,
) *voice.Machine {
	modelMgr := models.NewManager(cfg.ModelsDir)
	modelMgr.SetProgressCallback(func(modelID string, percent float64) {
		log.Printf("[Models] %s: %.0f%%", modelID, percent)
	})
	if err := modelMgr.EnsureModel(ctx, models.KWSModelID); err != nil {
		log.Printf("[Main] Wake-word model unavailable, voice disabled: %v", err)
		return nil
	}

	mic := voice.NewMicCapture(audioCtx)
	if err := mic.SetDeviceByName(cfg.MicDevice); err != nil {
		log.Printf("[Main] %v, using default microphone", err)
	}
	if err := mic.Start(); err != nil {
		log.Printf("[Main] Microphone unavailable, voice disabled: %v", err)
		return nil
	}

	detectors := voice.NewDetectorSet(detectorConfigs(cfg.ModelsDir))
	recorder := voice.NewMicRecorder(mic)

	// One pump: the detectors hear everything, the recorder only while
	// a capture session is active.
	go func() {
		for samples := range mic.Data() {
			detectors.Feed(samples)
			recorder.Feed(samples)
		}
	}()

	machine := voice.NewMachine(voice.MachineConfig{
		Recorder:    recorder,
		Transcriber: assistant,
		Chatter:     assistant,
		Speaker:     voice.NewReplySpeaker(audioCtx),
		Playback:    pl,
		SaveClip: func() error {
			ep := pl.Current()
			if ep == nil {
				return fmt.Errorf("no episode playing")
			}
			clips.Save(*ep, pl.Position(), pl.Duration())
			return nil
		},
		SaveQA: func(question, answer string) {
			qas.Save(question, answer, pl.Current(), pl.Position())
		},
	})

	go machine.Run(ctx, detectors.Events())
	return machine
}

// detectorConfigs builds the four spotter configs over the shared model,
// one keywords file per trigger phrase. Missing keyword files get a
// default written so the app works out of the box; edit them to change
// the phrases.
func detectorConfigs(modelsDir string) []voice.DetectorConfig {
	modelDir := filepath.Join(modelsDir, models.KWSModelID)
	encoder := filepath.Join(modelDir, "encoder-epoch-12-avg-2-chunk-16-left-64.onnx")
	decoder := filepath.Join(modelDir, "decoder-epoch-12-avg-2-chunk-16-left-64.onnx")
	joiner := filepath.Join(modelDir, "joiner-epoch-12-avg-2-chunk-16-left-64.onnx")
	tokens := filepath.Join(modelDir, "tokens.txt")

	triggers := []struct {
		event voice.WakeEvent
		file  string
		entry string
	}{
		{voice.WakePrimary, "keywords-primary.txt", "▁HEY ▁HOST @hey host"},
		{voice.WakeSaveClip, "keywords-save-clip.txt", "▁SAVE ▁THAT ▁CLIP @save that clip"},
		{voice.WakeSkipForward, "keywords-skip-forward.txt", "▁SKIP ▁FOR WARD @skip forward"},
		{voice.WakeSkipBackward, "keywords-skip-back.txt", "▁SKIP ▁BACK @skip back"},
	}

	configs := make([]voice.DetectorConfig, 0, len(triggers))
	for _, t := range triggers {
		path := filepath.Join(modelDir, t.file)
		if _, err := os.Stat(path); err != nil {
			if werr := os.WriteFile(path, []byte(t.entry+"\n"), 0644); werr != nil {
				log.Printf("[Main] Failed to write %s: %v", t.file, werr)
			}
		}
		configs = append(configs, voice.DetectorConfig{
			Event:        t.event,
			Encoder:      encoder,
			Decoder:      decoder,
			Joiner:       joiner,
			Tokens:       tokens,
			KeywordsFile: path,
		})
	}
	return configs
}
