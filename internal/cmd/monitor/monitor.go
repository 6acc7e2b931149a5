package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/clambin/go-common/slackbot"
	"github.com/clambin/go-common/taskmanager"
	"github.com/clambin/go-common/taskmanager/httpserver"
	promserver "github.com/clambin/go-common/taskmanager/prometheus"
	"github.com/mikey0000/ha-electric-kiwi/internal/bot"
	"github.com/mikey0000/ha-electric-kiwi/internal/collector"
	"github.com/mikey0000/ha-electric-kiwi/internal/ektools"
	"github.com/mikey0000/ha-electric-kiwi/internal/health"
	"github.com/mikey0000/ha-electric-kiwi/internal/poller"
	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor an Electric Kiwi account",
	RunE:  run,
}

func run(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m, err := New(ctx, viper.GetViper(), prometheus.DefaultRegisterer, cmd.Root().Version, logger)
	if err != nil {
		return err
	}

	logger.Info("ek-monitor starting", "version", cmd.Root().Version)
	defer logger.Info("ek-monitor stopped")
	return m.Run(ctx)
}

// New builds the task manager running all of ek-monitor's components.
func New(ctx context.Context, cfg *viper.Viper, registry prometheus.Registerer, version string, logger *slog.Logger) (*taskmanager.Manager, error) {
	client := ekapi.New(newAuthenticatedClient(ctx, cfg, registry))
	if err := client.ActiveSession(ctx); err != nil {
		return nil, fmt.Errorf("ekapi: session: %w", err)
	}
	return taskmanager.New(makeTasks(cfg, client, registry, version, logger)...), nil
}

func newAuthenticatedClient(ctx context.Context, cfg *viper.Viper, registry prometheus.Registerer) *http.Client {
	oauthCfg := oauth2.Config{
		ClientID:     cfg.GetString("ekapi.client-id"),
		ClientSecret: cfg.GetString("ekapi.client-secret"),
		Endpoint:     oauth2.Endpoint{AuthURL: ekapi.AuthURL, TokenURL: ekapi.TokenURL},
		Scopes:       strings.Split(ekapi.Scopes, " "),
	}

	requestMetrics := ektools.NewAPICallMetrics("ek", "monitor")
	if registry != nil {
		registry.MustRegister(requestMetrics)
	}

	// token refreshes go through the instrumented client as well
	ctx = context.WithValue(ctx, oauth2.HTTPClient, ektools.NewInstrumentedClient(nil, requestMetrics))
	token := &oauth2.Token{RefreshToken: cfg.GetString("ekapi.refresh-token")}
	return oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, token))
}

func makeTasks(cfg *viper.Viper, client *ekapi.Client, registry prometheus.Registerer, version string, l *slog.Logger) []taskmanager.Task {
	var tasks []taskmanager.Task

	// Pollers
	accountPoller := poller.NewAccount(client, cfg.GetDuration("account.interval"), l.With("component", "account-poller"))
	tasks = append(tasks, accountPoller)
	hopPoller := poller.NewHop(client, cfg.GetDuration("hop.interval"), l.With("component", "hop-poller"))
	tasks = append(tasks, hopPoller)

	// Collector
	coll := &collector.Collector{Account: accountPoller, Hop: hopPoller, Logger: l.With("component", "collector")}
	if registry != nil {
		registry.MustRegister(coll)
	}
	tasks = append(tasks, coll)

	// Prometheus Server
	tasks = append(tasks, promserver.New(promserver.WithAddr(cfg.GetString("exporter.addr"))))

	// Health Endpoint
	h := health.New(accountPoller, hopPoller, l.With("component", "health"))
	tasks = append(tasks, h)
	r := http.NewServeMux()
	r.Handle("/health", h)
	tasks = append(tasks, httpserver.New(cfg.GetString("health.addr"), r))

	// Slackbot
	if token := cfg.GetString("slack.token"); token != "" {
		sb := slackbot.New(
			token,
			slackbot.WithName("ekBot "+version),
			slackbot.WithLogger(l.With(slog.String("component", "slackbot"))),
		)
		bot.New(accountPoller, hopPoller, sb, l.With("component", "bot"))
		tasks = append(tasks, sb)
	}

	return tasks
}
