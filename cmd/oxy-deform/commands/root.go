package commands

import (
	"github.com/Carmen-Shannon/oxy-deform/engine/config"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	// settings collects every flag bound into the configuration.
	settings = viper.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "oxy-deform",
	Short: "GPU sine-wave mesh deformation",
	Long: `oxy-deform displaces every vertex of a mesh along its normal on the GPU,
then draws the result with an indirect draw call, once per frame.

Run it in a window with "run", or render a fixed number of frames without
presenting them with "headless".`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.oxy-deform/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("mesh", "plane", "mesh to deform (quad, plane, sphere)")
	rootCmd.PersistentFlags().Int("subdivisions", 64, "mesh subdivisions")
	rootCmd.PersistentFlags().Float32("radius", 0.15, "displacement amplitude")
	rootCmd.PersistentFlags().Float32("velocity", 2, "wave speed")

	settings.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	settings.BindPFlag("deform.mesh", rootCmd.PersistentFlags().Lookup("mesh"))
	settings.BindPFlag("deform.subdivisions", rootCmd.PersistentFlags().Lookup("subdivisions"))
	settings.BindPFlag("deform.radius", rootCmd.PersistentFlags().Lookup("radius"))
	settings.BindPFlag("deform.velocity", rootCmd.PersistentFlags().Lookup("velocity"))
}

// loadConfig reads the configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWith(settings, cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return nil, err
	}
	if used := settings.ConfigFileUsed(); used != "" {
		logging.WithComponent("cli").WithField("file", used).Debug("using config file")
	}
	return cfg, nil
}
