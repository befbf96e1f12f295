// Command imu-host runs the BMI270 service on a Linux host (spidev and
// gpiochip through periph) or against the built-in simulator.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-viper/mapstructure/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"imucode-go/drivers/bmi270"
	"imucode-go/services/imu"
)

var rootCmd = &cobra.Command{
	Use:   "imu-host",
	Short: "BMI270 FIFO streaming over SPI",
	Long:  "imu-host brings up a BMI270 over SPI and streams watermark-driven FIFO batches.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "bring the sensor up and stream samples",
	Long: `run uploads the configuration blob, arms the FIFO watermark interrupt and
prints one teleplot line per sample axis to stdout.
Settings are the defaults overlaid by the YAML file (--config, $IMU_CONFIG,
or imu.yaml in ~/.config/imu-host, /etc/imu-host, .), then IMU_* environment
variables (IMU_INT_PIN=20), then flags. --sim replaces the hardware with the
in-memory sensor model.
`,
	Example: `  imu-host run --config imu.yaml --blob bmi270_config.bin
  imu-host run --sim`,
	RunE: runE,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "read the chip id",
	RunE:  probeE,
}

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "print a configuration template",
	Example: `  imu-host init > imu.yaml`,
	RunE:    initE,
}

func commonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "YAML configuration file")
	cmd.Flags().Bool("sim", false, "use the simulated sensor")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

// Config sources, lowest precedence first: imu.DefaultConfig, the YAML
// file, IMU_* environment variables, then flags.
const (
	envPrefix  = "IMU"
	configName = "imu"
	configEnv  = "IMU_CONFIG"
)

func loadConfig(cmd *cobra.Command) (imu.Config, error) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		log.SetLevel(log.DebugLevel)
	}
	v := viper.New()
	if err := setDefaults(v, imu.DefaultConfig()); err != nil {
		return imu.Config{}, err
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else if path := os.Getenv(configEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "imu-host"))
		}
		v.AddConfigPath("/etc/imu-host")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("simulate", cmd.Flags().Lookup("sim"))

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err == nil {
		log.Debugln("using config file:", v.ConfigFileUsed())
	} else if !errors.As(err, &notFound) {
		return imu.Config{}, err
	}

	var cfg imu.Config
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" })
	if err != nil {
		return imu.Config{}, err
	}

	log.WithFields(log.Fields{
		"bus":       cfg.Bus,
		"int_pin":   cfg.IntPin,
		"watermark": cfg.Watermark,
		"sim":       cfg.Simulate,
	}).Debug("config loaded")
	return cfg, cfg.Validate()
}

// setDefaults registers every field of def under its yaml key so file,
// env and flag layers only override what they set.
func setDefaults(v *viper.Viper, def imu.Config) error {
	b, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, val := range m {
		v.SetDefault(k, val)
	}
	return nil
}

func loadBlob(cmd *cobra.Command, sim bool) ([]byte, error) {
	path, _ := cmd.Flags().GetString("blob")
	if path == "" {
		if sim {
			return make([]byte, bmi270.ConfigFileSize), nil
		}
		return nil, fmt.Errorf("--blob is required without --sim")
	}
	return os.ReadFile(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	blob, err := loadBlob(cmd, cfg.Simulate)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	var line []byte
	err = imu.Run(ctx, cfg, blob, func(b *imu.Batch) {
		if b.Err != nil {
			log.Warnf("batch %d: %v", b.Seq, b.Err)
			return
		}
		log.Debugf("batch %d %s len=%d frames=%d invalid=%d", b.Seq, b.Trigger, b.Length, len(b.Frames), b.Invalid)
		for _, s := range b.Samples {
			line = imu.AppendTeleplot(line[:0], s)
			_, _ = out.Write(line)
		}
		_ = out.Flush()
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func probeE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	s, err := imu.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.Device().ChipID()
	if err != nil {
		return err
	}
	entry := log.WithFields(log.Fields{"bus": cfg.Bus, "chip_id": fmt.Sprintf("%#02x", id)})
	if id != bmi270.ChipID {
		entry.Warn("not a BMI270")
		return nil
	}
	entry.Info("BMI270 found")
	return nil
}

func initE(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(imu.DefaultConfig())
}

func main() {
	commonFlags(runCmd)
	runCmd.Flags().StringP("blob", "b", "", "BMI270 configuration blob (8192 bytes)")
	rootCmd.AddCommand(runCmd)

	commonFlags(probeCmd)
	rootCmd.AddCommand(probeCmd)

	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
