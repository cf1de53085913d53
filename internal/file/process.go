package file

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/maximgrigorov/midi-cleaner/internal/processor"
)

// Process runs the cleaning chain over one file on disk: load, clean,
// save. Load-time warnings are folded into the report.
func Process(inPath, outPath string, config *processor.Config, preset string, log *zap.Logger) (*processor.Report, error) {
	doc, warnings, err := LoadFile(inPath)
	if err != nil {
		return nil, err
	}

	cfg := *config
	if preset != "" {
		cfg, err = processor.ApplyPreset(cfg, preset)
		if err != nil {
			return nil, err
		}
	}

	pipe := processor.New(cfg, log)
	if preset != "" {
		pipe.SetPreset(preset)
	}
	cleaned, report, err := pipe.Run(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to process %v: %v", inPath, err)
	}
	report.Warnings = append(warnings, report.Warnings...)

	if err := Save(outPath, cleaned); err != nil {
		return nil, err
	}
	return report, nil
}
