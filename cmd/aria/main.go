// Command aria is a terminal host for a live voice conversation: it wires the
// default microphone and speakers, Deepgram transcription and synthesis, and a
// Groq dialogue agent into one orchestrated session.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/tkresnik/aria-core/core"
	"github.com/tkresnik/aria-core/core/audio/miniaudio"
	paudio "github.com/tkresnik/aria-core/core/audio/portaudio"
	"github.com/tkresnik/aria-core/core/dialogue/groq"
	listen "github.com/tkresnik/aria-core/core/speechtotext/deepgram"
	speak "github.com/tkresnik/aria-core/core/texttospeech/deepgram"
)

const systemPrompt = "You are Aria, a voice assistant. Keep your answers short " +
	"and conversational; they are read out loud."

const portaudioBufferSize = 480

// audioDevice is the microphone and speaker pair a session runs on.
type audioDevice interface {
	orchestration.AudioInput
	orchestration.AudioOutput
	Close()
}

// openAudioDevice prefers miniaudio and falls back to portaudio when the
// miniaudio backend cannot be initialized on this host.
func openAudioDevice() (audioDevice, error) {
	device, err := miniaudio.NewClient()
	if err == nil {
		return device, nil
	}

	fallback, fallbackErr := paudio.NewClient(portaudioBufferSize)
	if fallbackErr != nil {
		return nil, fmt.Errorf("failed to open audio devices: %w", errors.Join(err, fallbackErr))
	}
	return fallback, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	audioClient, err := openAudioDevice()
	if err != nil {
		return err
	}
	defer audioClient.Close()

	synthesizer, err := speak.NewSynthesisClient(
		speak.WithEncodingInfo(audioClient.EncodingInfo()),
	)
	if err != nil {
		return fmt.Errorf("failed to configure synthesis: %w", err)
	}

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithAudioInput(audioClient),
		orchestration.WithAudioOutput(audioClient),
		orchestration.WithTranscriber(listen.NewTranscriptionClient()),
		orchestration.WithSynthesizer(synthesizer),
		orchestration.WithStreamingAgent(groq.NewClient(groq.WithSystemPrompt(systemPrompt))),
	)
	defer orchestrator.Close()

	program := tea.NewProgram(newModel(orchestrator), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.Orchestrate(ctx,
		orchestration.WithStateChangedCallback(func(state orchestration.State) {
			program.Send(stateChangedMsg{state: state})
		}),
		orchestration.WithInterimTranscriptCallback(func(transcript string) {
			program.Send(interimTranscriptMsg{transcript: transcript})
		}),
		orchestration.WithTranscriptCallback(func(string) {
			program.Send(historyChangedMsg{})
		}),
		orchestration.WithReplyCallback(func(string) {
			program.Send(historyChangedMsg{})
		}),
		orchestration.WithCancellationCallback(func() {
			program.Send(historyChangedMsg{})
		}),
		orchestration.WithPlaybackEndedCallback(func() {
			program.Send(historyChangedMsg{})
		}),
		orchestration.WithErrorCallback(func(err error) {
			program.Send(sessionErrorMsg{err: err})
		}),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run UI: %w", err)
	}
	return nil
}
