package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-failchain/internal/config"
	"github.com/miradorstack/mirador-failchain/internal/engine"
	"github.com/miradorstack/mirador-failchain/internal/failure"
	"github.com/miradorstack/mirador-failchain/internal/models"
	"github.com/miradorstack/mirador-failchain/internal/utils"
)

func newNormalizeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a single failure record and print the report as JSON",
	}
	cmd.AddCommand(newNormalizeXMLCmd(configPath), newNormalizeLegacyCmd(configPath))
	return cmd
}

func newNormalizeXMLCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "xml <file>",
		Short: "Normalize the failure element of a legacy result document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			normalizer, closeCache, err := oneShotNormalizer(cmd, *configPath)
			if err != nil {
				return err
			}
			defer closeCache()

			report, err := normalizer.NormalizeXML(cmd.Context(), data)
			if err != nil {
				return err
			}
			return writeReport(cmd, report)
		},
	}
}

func newNormalizeLegacyCmd(configPath *string) *cobra.Command {
	var exceptionType, messagesPath, stackTracesPath string

	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Normalize legacy message and stack trace blobs read from files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := readBlob(messagesPath)
			if err != nil {
				return err
			}
			stackTraces, err := readBlob(stackTracesPath)
			if err != nil {
				return err
			}
			normalizer, closeCache, err := oneShotNormalizer(cmd, *configPath)
			if err != nil {
				return err
			}
			defer closeCache()

			report, err := normalizer.NormalizeLegacy(cmd.Context(), failure.LegacyText{
				ExceptionType: exceptionType,
				Messages:      messages,
				StackTraces:   stackTraces,
			})
			if err != nil {
				return err
			}
			return writeReport(cmd, report)
		},
	}
	cmd.Flags().StringVar(&exceptionType, "type", "", "type name of the outermost failure")
	cmd.Flags().StringVar(&messagesPath, "messages", "", "file holding the flattened message blob")
	cmd.Flags().StringVar(&stackTracesPath, "stack-traces", "", "file holding the flattened stack trace blob")
	return cmd
}

// readBlob returns nil for an unset path so the parser reports the missing blob.
func readBlob(path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s := string(data)
	return &s, nil
}

// oneShotNormalizer builds a Normalizer that logs to stderr so stdout carries only the report.
func oneShotNormalizer(cmd *cobra.Command, configPath string) (*engine.Normalizer, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
	normalizer, closeCache := buildNormalizer(cfg, logger)
	return normalizer, closeCache, nil
}

func writeReport(cmd *cobra.Command, report models.Report) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
