package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/ipc"
	"slidecast/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var engine string
	var voice string
	var language string
	var rate string
	var pitch string

	cmd := &cobra.Command{
		Use:   "submit <deck.pptx>",
		Short: "Queue a presentation for narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("deck does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect deck: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}

			if ext := strings.ToLower(filepath.Ext(info.Name())); ext != ".pptx" {
				return fmt.Errorf("unsupported deck extension %q (expected .pptx)", ext)
			}

			params := queue.VoiceParams{
				Engine:   strings.ToLower(strings.TrimSpace(engine)),
				Voice:    strings.TrimSpace(voice),
				Language: strings.TrimSpace(language),
				Rate:     strings.TrimSpace(rate),
				Pitch:    strings.TrimSpace(pitch),
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.Submit(ipc.SubmitRequest{
						Path:     absPath,
						Engine:   params.Engine,
						Voice:    params.Voice,
						Language: params.Language,
						Rate:     params.Rate,
						Pitch:    params.Pitch,
					})
					if err != nil {
						return err
					}
					if resp == nil {
						return errors.New("empty response from daemon")
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, resp.Item)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued deck as job #%d (%s)\n", resp.Item.ID, filepath.Base(absPath))
					return nil
				}

				paramsJSON, err := encodeVoiceParams(params)
				if err != nil {
					return err
				}
				job, err := store.NewJob(cmd.Context(), absPath, "", paramsJSON)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"id": job.ID, "sourcePath": job.SourcePath, "status": string(job.Status)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued deck as job #%d (%s)\n", job.ID, filepath.Base(absPath))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "Preferred speech engine for this deck (configured order when empty)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name for synthesis (engine default when empty)")
	cmd.Flags().StringVar(&language, "language", "", "Narration language code, e.g. en-US")
	cmd.Flags().StringVar(&rate, "rate", "", "Speech rate adjustment, e.g. +10%")
	cmd.Flags().StringVar(&pitch, "pitch", "", "Speech pitch adjustment, e.g. -2Hz")
	return cmd
}

func encodeVoiceParams(params queue.VoiceParams) (string, error) {
	if params == (queue.VoiceParams{}) {
		return "", nil
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode voice params: %w", err)
	}
	return string(encoded), nil
}
