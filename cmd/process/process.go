package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/maximgrigorov/midi-cleaner/internal/file"
	"github.com/maximgrigorov/midi-cleaner/internal/processor"
	"github.com/maximgrigorov/midi-cleaner/internal/version"
)

var (
	c           = flag.String("c", "", "config file name (YAML); defaults apply when empty")
	i           = flag.String("i", "", "input MIDI file name")
	o           = flag.String("o", "", "output MIDI file name (default: input with .clean.mid suffix)")
	preset      = flag.String("preset", "", "cleaning preset to apply on top of the config")
	listPresets = flag.Bool("list_presets", false, "list available presets and exit")
	reportFile  = flag.String("report", "", "write the processing report to this YAML file")
	verbose     = flag.Bool("v", false, "verbose logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func Main() error {
	if *showVersion {
		fmt.Println(version.Version())
		return nil
	}
	if *listPresets {
		for _, name := range processor.PresetNames() {
			fmt.Printf("%s\t%s\n", name, processor.Presets[name].Description)
		}
		return nil
	}
	if *i == "" {
		return fmt.Errorf("missing input file name (-i)")
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to build logger: %v", err)
		}
		defer logger.Sync()
	}

	config := processor.DefaultConfig()
	if *c != "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %v", err)
		}
		loaded, err := file.ReadConfig(os.DirFS(cwd), *c)
		if err != nil {
			return fmt.Errorf("failed to read config: %v", err)
		}
		config = *loaded
	}

	out := *o
	if out == "" {
		out = strings.TrimSuffix(*i, ".mid") + ".clean.mid"
	}

	report, err := file.Process(*i, out, &config, *preset, logger)
	if err != nil {
		return fmt.Errorf("failed to process: %v", err)
	}

	if *reportFile != "" {
		if err := writeReport(*reportFile, report); err != nil {
			return err
		}
	}

	fmt.Printf("%s: %d -> %d notes, %d warnings, wrote %s\n",
		*i, report.InputNoteCount, report.OutputNoteCount, len(report.Warnings), out)
	return nil
}

func writeReport(name string, report *processor.Report) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", name, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	return enc.Encode(report)
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
