package cmd

import (
	"log/slog"
	"os"

	"github.com/clambin/go-common/charmer"
	"github.com/mikey0000/ha-electric-kiwi/internal/cmd/monitor"
	"github.com/mikey0000/ha-electric-kiwi/internal/poller"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "ek-monitor",
		Short: "Monitor for Electric Kiwi accounts",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			var opts slog.HandlerOptions
			if viper.GetBool("debug") {
				opts.Level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &opts)))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd)
}

var args = charmer.Arguments{
	"debug":               {Default: false, Help: "Log debug messages"},
	"ekapi.client-id":     {Default: "", Help: "Electric Kiwi OAuth2 client id"},
	"ekapi.client-secret": {Default: "", Help: "Electric Kiwi OAuth2 client secret"},
	"ekapi.refresh-token": {Default: "", Help: "Electric Kiwi OAuth2 refresh token"},
	"account.interval":    {Default: poller.DefaultAccountInterval, Help: "Account balance refresh interval"},
	"hop.interval":        {Default: poller.DefaultHopInterval, Help: "Hour of power refresh interval"},
	"exporter.addr":       {Default: ":9090", Help: "Address of the Prometheus exporter"},
	"health.addr":         {Default: ":8080", Help: "Address of the /health endpoint"},
	"slack.token":         {Default: "", Help: "Slack token (optional)"},
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/ek-monitor/")
		viper.AddConfigPath("$HOME/.ek-monitor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("EK_MONITOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", "err", err)
		os.Exit(1)
	}
}
