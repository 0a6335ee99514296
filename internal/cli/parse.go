package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajibrjb/AiResumeParserApi/internal/ai"
	"github.com/rajibrjb/AiResumeParserApi/internal/common"
	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/parser"
	"github.com/rajibrjb/AiResumeParserApi/internal/types"
	"github.com/rajibrjb/AiResumeParserApi/internal/utils"
)

var parseCmd = &cobra.Command{
	Use:   "parse [resume-file]",
	Short: "Parse a resume document into structured JSON",
	Long: `Parse a single resume document (PDF, DOCX or plain text) into structured
JSON using the configured AI provider. The output follows the built-in resume
template unless --template points to a JSON file with a custom one.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var parseConfig common.CommandConfig
var parseTemplateFile string

func init() {
	parseCmd.Flags().StringVarP(&parseConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	parseCmd.Flags().StringVarP(&parseTemplateFile, "template", "t", "", "JSON file holding the template to reconcile against")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	aiService, err := ai.NewService(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	filename := args[0]
	data, err := utils.ReadInputFile(filename)
	if err != nil {
		return err
	}

	template, err := loadTemplate(parseTemplateFile)
	if err != nil {
		return err
	}
	if template == nil {
		template = types.DefaultResumeTemplate()
	}

	logger.Info("Parsing resume",
		"file", filename,
		"size", utils.FormatFileSize(int64(len(data))),
		"provider", cfg.AI.Provider)

	svc := parser.NewService(aiService.Provider, logger)
	result, err := svc.Parse(cmd.Context(), types.ParseResumeInput{
		FileData: data,
		MimeType: utils.DetectMimeType(filename),
		Filename: filename,
		Template: template,
	})
	if err != nil {
		return fmt.Errorf("failed to parse resume: %w", err)
	}

	return common.NewOutputHandler(logger).HandleOutput(result, parseConfig)
}

// loadTemplate reads a template file. The template must be a JSON object.
func loadTemplate(file string) (map[string]any, error) {
	if file == "" {
		return nil, nil
	}

	data, err := utils.ReadInputFile(file)
	if err != nil {
		return nil, err
	}

	var template map[string]any
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("template file must hold a JSON object: %w", err)
	}
	if len(template) == 0 {
		return nil, fmt.Errorf("template file %s holds an empty object", file)
	}
	return template, nil
}
