// Package conf loads scanner configuration. Every empirically tuned constant
// in the pipeline (overlap thresholds, confidence floors, variance gates) is
// exposed here so deployments can adjust them without code changes.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings mirrors the config file layout.
type Settings struct {
	Debug bool `yaml:"debug"`

	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Catalog struct {
		DataDir     string   `yaml:"datadir"`     // directory with items.json etc.
		TemplateDir string   `yaml:"templatedir"` // root of icon assets
		CorpusPath  string   `yaml:"corpuspath"`  // training corpus JSON
		Priority    []string `yaml:"priority"`    // entity IDs to load synchronously
	} `yaml:"catalog"`

	Scan ScanSettings `yaml:"scan"`
}

// ScanSettings carries the pipeline tunables. Defaults reproduce the
// historically tuned values; none of them is load-bearing for correctness.
type ScanSettings struct {
	Algorithm     string  `yaml:"algorithm"`     // ncc, ssd or ssim
	NMSOverlap    float64 `yaml:"nmsoverlap"`    // duplicate suppression overlap ratio
	GridFloor     float64 `yaml:"gridfloor"`     // minimum grid confidence
	MinColumns    int     `yaml:"mincolumns"`    // minimum grid columns
	VarianceFloor float64 `yaml:"variancefloor"` // empty-cell variance gate

	Threshold1080 float64 `yaml:"threshold1080"` // match floor at >=1080p
	Threshold720  float64 `yaml:"threshold720"`  // match floor at >=720p
	ThresholdLow  float64 `yaml:"thresholdlow"`  // match floor below 720p

	BandFraction float64 `yaml:"bandfraction"` // hotbar band: bottom fraction of frame
	EquipWidth   float64 `yaml:"equipwidth"`   // equipment region: left fraction
	EquipHeight  float64 `yaml:"equipheight"`  // equipment region: top fraction

	MinCell int `yaml:"mincell"` // smallest plausible icon pitch
	MaxCell int `yaml:"maxcell"` // largest plausible icon pitch

	VerifyResidual  float64 `yaml:"verifyresidual"`  // lattice outlier cutoff, fraction of cell
	ContextBoost    float64 `yaml:"contextboost"`    // co-occurrence confidence boost
	RarityTolerance float64 `yaml:"raritytolerance"` // Lab distance allowed vs declared rarity

	UncertainLow  float64 `yaml:"uncertainlow"`  // active-learning band lower bound
	UncertainHigh float64 `yaml:"uncertainhigh"` // active-learning band upper bound

	EarlyExit float64 `yaml:"earlyexit"` // ensemble early-exit confidence
	Workers   int     `yaml:"workers"`   // legacy parallel path pool size, 0 = auto
}

// Load reads the configuration, falling back to defaults when no config file
// exists. A malformed config file is an error; a missing one is not.
func Load() (*Settings, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(settings); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	if configDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(configDir, "bonk-scanner"))
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file: run on defaults.
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func validate(s *Settings) error {
	sc := &s.Scan
	if sc.NMSOverlap < 0 || sc.NMSOverlap > 1 {
		return fmt.Errorf("scan.nmsoverlap must be in [0,1], got %v", sc.NMSOverlap)
	}
	if sc.GridFloor < 0 || sc.GridFloor > 1 {
		return fmt.Errorf("scan.gridfloor must be in [0,1], got %v", sc.GridFloor)
	}
	if sc.MinColumns < 1 {
		return fmt.Errorf("scan.mincolumns must be at least 1, got %d", sc.MinColumns)
	}
	if sc.UncertainLow >= sc.UncertainHigh {
		return fmt.Errorf("scan.uncertainlow (%v) must be below scan.uncertainhigh (%v)",
			sc.UncertainLow, sc.UncertainHigh)
	}
	if sc.BandFraction <= 0 || sc.BandFraction > 1 {
		return fmt.Errorf("scan.bandfraction must be in (0,1], got %v", sc.BandFraction)
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	return nil
}
