// Package bot adds a set of Slack commands to view the account and change
// the hour of power.
package bot

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/clambin/go-common/set"
	"github.com/clambin/go-common/slackbot"
	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
	"github.com/slack-go/slack"
)

// AccountPoller is the part of the account poller the bot needs.
type AccountPoller interface {
	Balance() (ekapi.AccountBalance, bool)
	Refresh()
}

// HopPoller is the part of the hour of power poller the bot needs.
type HopPoller interface {
	Selected() (ekapi.Hop, bool)
	Options() map[string]int
	SetHop(context.Context, int) (ekapi.Hop, error)
	Refresh()
}

// SlackBot interface for the underlying slack client.
type SlackBot interface {
	Register(name string, command slackbot.CommandFunc)
	Run(ctx context.Context) error
	Send(channel string, attachments []slack.Attachment) error
}

type Bot struct {
	account AccountPoller
	hop     HopPoller
	logger  *slog.Logger
}

func New(account AccountPoller, hop HopPoller, slackBot SlackBot, logger *slog.Logger) *Bot {
	b := Bot{
		account: account,
		hop:     hop,
		logger:  logger,
	}

	slackBot.Register("balance", b.onBalance)
	slackBot.Register("hop", b.onHop)
	slackBot.Register("hops", b.onHops)
	slackBot.Register("sethop", b.onSetHop)
	slackBot.Register("refresh", b.onRefresh)

	return &b
}

func (b *Bot) onBalance(_ context.Context, _ ...string) []slack.Attachment {
	balance, ok := b.account.Balance()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: "account balance not available yet"}}
	}
	return []slack.Attachment{{
		Color: "good",
		Title: "account balance",
		Text: "running balance: $" + balance.TotalRunningBalance +
			", current balance: $" + balance.TotalAccountBalance +
			", next billing date: " + balance.NextBillingDate,
	}}
}

func (b *Bot) onHop(_ context.Context, _ ...string) []slack.Attachment {
	hop, ok := b.hop.Selected()
	if !ok {
		return []slack.Attachment{{Color: "bad", Text: "hour of power not available yet"}}
	}
	return []slack.Attachment{{Color: "good", Title: "hour of power", Text: hop.Label()}}
}

func (b *Bot) onHops(_ context.Context, _ ...string) []slack.Attachment {
	options := b.hop.Options()
	if len(options) == 0 {
		return []slack.Attachment{{Color: "bad", Text: "hour of power options not available yet"}}
	}
	return []slack.Attachment{{Color: "good", Title: "hours of power", Text: strings.Join(sortedLabels(options), "\n")}}
}

func (b *Bot) onSetHop(ctx context.Context, args ...string) []slack.Attachment {
	options := b.hop.Options()
	if len(options) == 0 {
		return []slack.Attachment{{Color: "bad", Text: "hour of power options not available yet"}}
	}

	label := strings.Join(args, " ")
	valid := set.New(sortedLabels(options)...)
	if !valid.Contains(label) {
		return []slack.Attachment{{
			Color: "bad",
			Title: "invalid hour of power: " + label,
			Text:  "valid options:\n" + strings.Join(sortedLabels(options), "\n"),
		}}
	}

	hop, err := b.hop.SetHop(ctx, options[label])
	if err != nil {
		b.logger.Error("failed to set hour of power", slog.Any("err", err))
		return []slack.Attachment{{Color: "bad", Title: "failed to set hour of power", Text: err.Error()}}
	}
	return []slack.Attachment{{Color: "good", Title: "hour of power updated", Text: hop.Label()}}
}

func (b *Bot) onRefresh(_ context.Context, _ ...string) []slack.Attachment {
	b.account.Refresh()
	b.hop.Refresh()
	return []slack.Attachment{{Color: "good", Text: "refreshing"}}
}

func sortedLabels(options map[string]int) []string {
	labels := make([]string, 0, len(options))
	for label := range options {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return options[labels[i]] < options[labels[j]] })
	return labels
}
