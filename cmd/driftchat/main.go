package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/driftchat/driftchat-go/internal/app"
	"github.com/driftchat/driftchat-go/internal/config"
	"github.com/driftchat/driftchat-go/internal/event"
	"github.com/driftchat/driftchat-go/internal/log"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository/sqlite"
	"github.com/driftchat/driftchat-go/internal/sync"
	"github.com/driftchat/driftchat-go/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	cfg        config.Config
	log        *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "driftchat",
		Short:         "Offline-first chat client: event pipeline, cache and sync tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is optional; real env vars still apply without one.
			_ = godotenv.Load()

			bootstrap := log.New("info")
			cfg, path, err := config.Load(bootstrap, c.configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
			c.cfg = cfg
			c.log = log.New(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config.yaml")

	root.AddCommand(
		c.tailCmd(),
		c.replayCmd(),
		c.channelsCmd(),
		c.messagesCmd(),
		c.retryCmd(),
	)
	return root
}

// tail runs the full session: socket, pipeline, background sync.
func (c *cli) tailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Connect the socket and keep the local cache in sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(&c.cfg, c.log)
			if err != nil {
				return err
			}
			c.log.Info().Str("socket", c.cfg.SocketURL).Msg("starting session")
			if err := a.Run(ctx); err != nil {
				return fmt.Errorf("session exited: %w", err)
			}
			c.log.Info().Msg("session stopped")
			return nil
		},
	}
}

// replay feeds a JSON event dump through the pipeline against the cache,
// without a socket or network client.
func (c *cli) replayCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Apply a JSON event dump to the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read event dump: %w", err)
			}
			events, err := event.ParseBatch(data)
			if err != nil {
				return fmt.Errorf("parse event dump: %w", err)
			}

			repo, err := sqlite.New(c.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer repo.Close()

			var user *model.User
			if userID != "" {
				user = &model.User{ID: userID}
			}
			state := sync.NewGlobalState(user)
			handler := sync.NewEventHandler(repo, state, sync.NewObserverRegistry(), nil, nil, false, nil, c.log)

			if err := handler.HandleEvents(cmd.Context(), events...); err != nil {
				return fmt.Errorf("apply events: %w", err)
			}
			c.log.Info().Int("events", len(events)).Msg("event dump applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "session user id for current-user protection")
	return cmd
}

// channels lists every cached channel.
func (c *cli) channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List cached channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := sqlite.New(c.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer repo.Close()

			cids, err := repo.SelectAllCids(cmd.Context())
			if err != nil {
				return err
			}
			channels, err := repo.SelectChannels(cmd.Context(), cids)
			if err != nil {
				return err
			}
			for _, ch := range channels {
				status := ch.SyncStatus
				if status == "" {
					status = model.SyncCompleted
				}
				marker := ""
				if utils.IsProvisionalChannelID(ch.ID) {
					marker = "\t(provisional)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tmembers=%d\tstatus=%s%s\n", ch.CID(), ch.Name, len(ch.Members), status, marker)
			}
			return nil
		},
	}
}

// messages lists a channel's newest cached messages.
func (c *cli) messagesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "messages <cid>",
		Short: "List a channel's cached messages, newest last",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := model.SplitCid(args[0]); err != nil {
				return err
			}
			repo, err := sqlite.New(c.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer repo.Close()

			messages, err := repo.SelectMessagesForChannel(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, msg := range messages {
				author := ""
				if msg.User != nil {
					author = msg.User.ID
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.ID, author, msg.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum messages to list")
	return cmd
}

// retry resubmits every entity stuck in sync_needed.
func (c *cli) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Resubmit entities awaiting sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(&c.cfg, c.log)
			if err != nil {
				return err
			}
			// The retry path normally runs behind a live socket; a manual
			// retry asserts connectivity instead of waiting for one.
			a.State().SetConnectionState(sync.ConnectionOnline)
			if err := a.Manager().RetryFailedEntities(ctx); err != nil {
				return fmt.Errorf("retry pending entities: %w", err)
			}
			c.log.Info().Msg("retry pass finished")
			return nil
		},
	}
}
