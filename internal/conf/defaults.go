package conf

import "github.com/spf13/viper"

// setDefaults registers the default value for every setting on the global
// viper used by Load.
func setDefaults() {
	applyDefaults(viper.GetViper())
}

// applyDefaults registers defaults on a viper instance. The scan defaults are
// the historically tuned constants from the original detector.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8585)

	v.SetDefault("catalog.datadir", "data")
	v.SetDefault("catalog.templatedir", "assets")
	v.SetDefault("catalog.corpuspath", "training/templates.json")
	v.SetDefault("catalog.priority", []string{})

	v.SetDefault("scan.algorithm", "ncc")
	v.SetDefault("scan.nmsoverlap", 0.3)
	v.SetDefault("scan.gridfloor", 0.4)
	v.SetDefault("scan.mincolumns", 3)
	v.SetDefault("scan.variancefloor", 800.0)

	v.SetDefault("scan.threshold1080", 0.50)
	v.SetDefault("scan.threshold720", 0.45)
	v.SetDefault("scan.thresholdlow", 0.40)

	v.SetDefault("scan.bandfraction", 0.20)
	v.SetDefault("scan.equipwidth", 0.25)
	v.SetDefault("scan.equipheight", 0.40)

	v.SetDefault("scan.mincell", 24)
	v.SetDefault("scan.maxcell", 128)

	v.SetDefault("scan.verifyresidual", 0.35)
	v.SetDefault("scan.contextboost", 0.05)
	v.SetDefault("scan.raritytolerance", 30.0)

	v.SetDefault("scan.uncertainlow", 0.45)
	v.SetDefault("scan.uncertainhigh", 0.70)

	v.SetDefault("scan.earlyexit", 0.85)
	v.SetDefault("scan.workers", 0)
}

// Defaults returns Settings populated purely from the default values, without
// reading any config file. Used by tests and the CLI harnesses.
func Defaults() *Settings {
	v := viper.New()
	applyDefaults(v)
	s := &Settings{}
	// Registered defaults always unmarshal cleanly.
	_ = v.Unmarshal(s)
	return s
}
