// Package common holds command plumbing shared by the CLI: output handling
// and input file loading.
package common

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/utils"
)

// CommandConfig holds common configuration for commands.
type CommandConfig struct {
	OutputFile string
}

// OutputHandler formats command results and writes them to stdout or a file.
type OutputHandler struct {
	logger *errors.Logger
}

// NewOutputHandler creates a new output handler.
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{logger: logger}
}

// HandleOutput writes data as indented JSON to the configured destination.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := utils.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"failed to encode output as JSON", err)
	}
	output = append(output, '\n')

	if config.OutputFile != "" {
		if err := os.WriteFile(config.OutputFile, output, 0600); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("failed to write output file: %s", config.OutputFile), err)
		}
		oh.logger.Info("Output written successfully", "file", config.OutputFile)
	} else {
		fmt.Print(string(output))
	}

	return nil
}
