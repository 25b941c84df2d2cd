// Package config loads the analysis settings from a YAML file and
// environment overrides.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// Model holds the regressor hyperparameters.
type Model struct {
	NumIterations   int     `mapstructure:"num_iterations"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	NumLeaves       int     `mapstructure:"num_leaves"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinChildSamples int     `mapstructure:"min_child_samples"`
	RegLambda       float64 `mapstructure:"reg_lambda"`
	Objective       string  `mapstructure:"objective"`
	Seed            int     `mapstructure:"seed"`
}

// CrossValidation holds the evaluation settings. HoldoutFraction,
// when positive, additionally scores each target on a shuffled
// hold-out split of that size.
type CrossValidation struct {
	Folds           int     `mapstructure:"folds"`
	LeaveOneOut     bool    `mapstructure:"leave_one_out"`
	HoldoutFraction float64 `mapstructure:"holdout_fraction"`
}

// VASP holds the input generation paths.
type VASP struct {
	PotpawDir    string `mapstructure:"potpaw_dir"`
	PoscarDir    string `mapstructure:"poscar_dir"`
	IncarPattern string `mapstructure:"incar_pattern"`
}

// Config is the full runtime configuration.
type Config struct {
	DataPath  string          `mapstructure:"data_path"`
	OutputDir string          `mapstructure:"output_dir"`
	LogLevel  string          `mapstructure:"log_level"`
	TopN      int             `mapstructure:"top_n"`
	Model     Model           `mapstructure:"model"`
	CV        CrossValidation `mapstructure:"cv"`
	VASP      VASP            `mapstructure:"vasp"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_path", "data/descriptors.csv")
	v.SetDefault("output_dir", "output")
	v.SetDefault("log_level", "info")
	v.SetDefault("top_n", 10)

	v.SetDefault("model.num_iterations", 200)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.num_leaves", 15)
	v.SetDefault("model.max_depth", 4)
	v.SetDefault("model.min_child_samples", 3)
	v.SetDefault("model.reg_lambda", 1.0)
	v.SetDefault("model.objective", "l2")
	v.SetDefault("model.seed", 42)

	v.SetDefault("cv.folds", 5)
	v.SetDefault("cv.leave_one_out", false)
	v.SetDefault("cv.holdout_fraction", 0.0)

	v.SetDefault("vasp.potpaw_dir", "data/potpaw_PBE")
	v.SetDefault("vasp.poscar_dir", "data/poscar_pattern")
	v.SetDefault("vasp.incar_pattern", "data/incar_pattern/INCAR_PATTERN")
}

// Load reads the config file at path, or defaults plus CHALC2D_*
// environment variables when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHALC2D")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}
