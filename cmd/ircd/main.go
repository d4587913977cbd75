// Command ircd runs the chat server: a TCP and, optionally,
// WebSocket IRC listener sharing one connection registry.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kroketio/chatripper-ircd/internal/ircd/auth"
	"github.com/kroketio/chatripper-ircd/internal/ircd/conn"
	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircdlog"
	"github.com/kroketio/chatripper-ircd/internal/ircd/registry"
	"github.com/kroketio/chatripper-ircd/internal/ircd/server"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ircd",
		Short: "Run the chat server",
		RunE:  runServer,
	}

	cmd.Flags().String("listen", ":6667", "address to listen on for raw TCP clients")
	cmd.Flags().String("web", "", "address to listen on for WebSocket clients (empty disables it)")
	cmd.Flags().String("server-name", "localhost", "server name advertised in replies")
	cmd.Flags().String("network", "ChatRipper", "network name advertised in RPL_ISUPPORT")
	cmd.Flags().String("password", "", "server password required at registration (empty disables it)")
	cmd.Flags().StringSlice("motd", nil, "lines of the message-of-the-day")
	cmd.Flags().Int("max-nick-length", 32, "maximum nickname length in bytes")
	cmd.Flags().Int("workers", 0, "fixed worker pool size (0 uses the default)")
	cmd.Flags().Int("max-per-ip", 10, "maximum concurrent connections per remote IP (0 disables the cap)")
	cmd.Flags().Duration("ping-interval", 90*time.Second, "interval between keepalive PINGs to idle clients")
	cmd.Flags().Duration("idle-grace", 3*time.Second, "grace period after an unanswered PING before disconnecting")

	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	listen, _ := flags.GetString("listen")
	web, _ := flags.GetString("web")
	serverName, _ := flags.GetString("server-name")
	network, _ := flags.GetString("network")
	password, _ := flags.GetString("password")
	motd, _ := flags.GetStringSlice("motd")
	maxNick, _ := flags.GetInt("max-nick-length")
	workers, _ := flags.GetInt("workers")
	maxPerIP, _ := flags.GetInt("max-per-ip")
	pingInterval, _ := flags.GetDuration("ping-interval")
	idleGrace, _ := flags.GetDuration("idle-grace")

	rootLog := ircdlog.Default()

	rt := &conn.Runtime{
		Registry: registry.New(),
		Bus:      events.NewBus(),
		Hasher:   auth.NewBcrypt(),
		Log:      rootLog,
		Config: &conn.Config{
			ServerName: serverName,
			Network:    network,
			Password:   password,
			MOTD:       motd,
			MaxNick:    maxNick,
		},
	}

	srv := server.New(rt, server.Options{
		ListenAddr:   listen,
		WebAddr:      web,
		Workers:      workers,
		MaxPerIP:     maxPerIP,
		PingInterval: pingInterval,
		IdleGrace:    idleGrace,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootLog.With("ircd/cmd").Printf("starting up, web=%q", web)
	return srv.Run(ctx)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
