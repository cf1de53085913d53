package file

import (
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/maximgrigorov/midi-cleaner/internal/processor"
)

// ReadConfig loads a cleaning config from YAML, starting from defaults
// so absent keys keep their default values.
func ReadConfig(fsys fs.FS, configFile string) (*processor.Config, error) {
	f, err := fsys.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %v", configFile, err)
	}
	defer f.Close()
	config := processor.DefaultConfig()
	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %v", configFile, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %v", configFile, err)
	}
	return &config, nil
}

// WriteConfig writes a cleaning config as YAML.
func WriteConfig(configFile string, config *processor.Config) (err error) {
	f, err := os.Create(configFile)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", configFile, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	return enc.Encode(config)
}
