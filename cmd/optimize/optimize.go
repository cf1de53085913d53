package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/maximgrigorov/midi-cleaner/internal/classify"
	"github.com/maximgrigorov/midi-cleaner/internal/file"
	"github.com/maximgrigorov/midi-cleaner/internal/oracle"
	"github.com/maximgrigorov/midi-cleaner/internal/processor"
	"github.com/maximgrigorov/midi-cleaner/internal/tuner"
)

var (
	c          = flag.String("c", "", "config file name (YAML); defaults apply when empty")
	i          = flag.String("i", "", "input MIDI file name")
	o          = flag.String("o", "", "output MIDI file name (default: input with .tuned.mid suffix)")
	trials     = flag.Int("trials", tuner.DefaultMaxTrials, "maximum number of tuning trials")
	seed       = flag.Int64("seed", 0, "random seed (0 picks one)")
	strategy   = flag.String("strategy", tuner.StrategyRandom, "search strategy: random or mayfly")
	oracleURL  = flag.String("oracle_url", "", "OpenAI-compatible chat endpoint for the advisory oracle (empty disables)")
	oracleKey  = flag.String("oracle_key", "", "API key for the oracle endpoint")
	model      = flag.String("oracle_model", "gpt-4o-mini", "model name for the oracle endpoint")
	statusFile = flag.String("status", "", "write the final tuning status to this YAML file")
	verbose    = flag.Bool("v", false, "verbose logging")
)

func Main() error {
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

	doc, warnings, err := file.LoadFile(*i)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Println("warning:", w)
	}
	fmt.Printf("%s: %d notes, dominant track type %s\n", *i, doc.NoteCount(), classify.Dominant(doc))

	opts := tuner.Options{
		MaxTrials: *trials,
		Seed:      *seed,
		Strategy:  *strategy,
	}
	if *oracleURL != "" {
		opts.Advisor = oracle.NewClient(*oracleURL, *model, *oracleKey)
	}

	session := tuner.NewSession(doc, config, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tuning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		session.Wait()
		close(done)
	}()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
poll:
	for {
		select {
		case <-done:
			break poll
		case <-ticker.C:
			st := session.Status()
			fmt.Printf("trial %d/%d best=%.2f\n", st.CurrentTrial, st.MaxTrials, st.BestScore)
		}
	}

	st := session.Status()
	fmt.Printf("stopped after %d trials (%s): baseline=%.2f best=%.2f\n",
		len(st.Trials), st.StopReason, st.BaselineScore, st.BestScore)
	for _, d := range st.OracleDecisions {
		if d.ParsedOK {
			fmt.Printf("oracle call %d suggested %s\n", d.CallNumber, d.SuggestedChanges)
		} else {
			fmt.Printf("oracle call %d failed: %s\n", d.CallNumber, d.Error)
		}
	}

	if *statusFile != "" {
		if err := writeStatus(*statusFile, st); err != nil {
			return err
		}
	}

	if st.StopReason == tuner.StopCancelled {
		return fmt.Errorf("tuning cancelled")
	}

	out := *o
	if out == "" {
		out = strings.TrimSuffix(*i, ".mid") + ".tuned.mid"
	}
	cleaned, report, err := session.Apply(doc)
	if err != nil {
		return fmt.Errorf("failed to apply best parameters: %v", err)
	}
	if err := file.Save(out, cleaned); err != nil {
		return err
	}
	fmt.Printf("%d -> %d notes, wrote %s\n", report.InputNoteCount, report.OutputNoteCount, out)
	return nil
}

func writeStatus(name string, st tuner.Status) (err error) {
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
	return enc.Encode(st)
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
