// Microphone level check: prints the byte-scaled spectrum average every
// 100ms and marks where the silence endpointer would stop a capture.
// Run: go run ./cmd/micmeter
// Stop: Ctrl+C

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heyhost/voice"

	"github.com/gen2brain/malgo"
)

func main() {
	device := flag.String("mic", "", "Microphone device name (default device if empty)")
	flag.Parse()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatalf("Failed to init audio context: %v", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	mic := voice.NewMicCapture(ctx)
	if err := mic.SetDeviceByName(*device); err != nil {
		log.Fatalf("%v", err)
	}
	if err := mic.Start(); err != nil {
		log.Fatalf("Failed to start microphone: %v", err)
	}
	defer mic.Stop()

	log.Printf("Speak into the microphone; silence threshold is %d. Ctrl+C to stop.", voice.SilenceThreshold)

	meter := voice.NewSpectrumMeter(2048)
	endpoint := voice.NewEndpointer(voice.SilenceThreshold, voice.SilenceWindow)

	var recent []float32
	ticker := time.NewTicker(voice.MeterInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			return
		case samples := <-mic.Data():
			recent = append(recent, samples...)
			if len(recent) > 2048 {
				recent = recent[len(recent)-2048:]
			}
		case now := <-ticker.C:
			avg := meter.Average(recent)
			mark := ""
			if endpoint.Observe(avg, now) {
				mark = "  <- capture would stop here"
				endpoint.Reset()
			}
			log.Printf("level=%6.1f%s", avg, mark)
		}
	}
}
