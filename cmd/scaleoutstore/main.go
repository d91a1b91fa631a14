// Command scaleoutstore is a small demonstration and load-shape tool for
// the scaleout message store: it runs producer goroutines appending
// synthetic events and a reader goroutine polling them back by cursor,
// logging overruns and dropped messages as it goes. It is not a server —
// the store's core treats transport as an external collaborator, so this
// binary never listens on a socket; it only exercises the library
// in-process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scaleoutstore/scaleoutstore/store"
)

var cmd Cmd

// Cmd holds the command-line arguments.
type Cmd struct {
	ConfigPath string
	Producers  int
	Events     int
}

var rootCmd = &cobra.Command{
	Use:   "scaleoutstore",
	Short: "Exercise the scaleout message store with synthetic producers and a reader",
	Run: func(_ *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			var intr interrupted
			if errors.As(err, &intr) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to a YAML config file (optional; defaults apply if omitted)")
	rootCmd.Flags().IntVarP(&cmd.Producers, "producers", "p", 4, "Number of concurrent producer goroutines")
	rootCmd.Flags().IntVarP(&cmd.Events, "events", "n", 100000, "Number of events each producer appends")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	config := zap.NewDevelopmentConfig()
	config.Development = false
	config.Level.SetLevel(zap.InfoLevel)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	cfg := store.DefaultConfig()
	if cmd.ConfigPath != "" {
		cfg, err = store.LoadConfig(cmd.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	s := store.New(cfg, store.WithLogger(logger))

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)

	for p := 0; p < cmd.Producers; p++ {
		p := p
		wg.Go(func() error {
			return produce(ctx, s, p, cmd.Events)
		})
	}

	wg.Go(func() error {
		return consume(ctx, s, logger)
	})

	wg.Go(func() error {
		err := waitInterrupted(ctx)
		logger.Info("caught signal", zap.Error(err))
		return err
	})

	return wg.Wait()
}

func produce(ctx context.Context, s *store.Store, producerID, count int) error {
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		eventID := uint64(producerID)<<48 | uint64(i)
		s.Append(store.Event{EventID: eventID, Payload: []byte("event")})
	}
	return nil
}

func consume(ctx context.Context, s *store.Store, logger *zap.Logger) error {
	var cursor uint64
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			batch := s.Read(cursor)
			if batch.NextCursor != cursor {
				logger.Info("reader overran; resuming from oldest surviving fragment",
					zap.Uint64("requested_cursor", cursor),
					zap.Uint64("resumed_cursor", batch.NextCursor),
				)
				if s.GapBetween(cursor, batch.NextCursor) {
					logger.Warn("messages dropped while this consumer was behind",
						zap.Uint64("from", cursor),
						zap.Uint64("to", batch.NextCursor),
					)
				}
			}
			cursor = batch.NextCursor + uint64(len(batch.Messages))
			if len(batch.Messages) > 0 {
				logger.Debug("read batch", zap.Int("count", len(batch.Messages)), zap.Bool("has_more", batch.HasMore))
			}
		}
	}
}

type interrupted struct {
	os.Signal
}

func (m interrupted) Error() string {
	return m.String()
}

// waitInterrupted blocks until either SIGINT or SIGTERM is received or the
// provided context is canceled.
func waitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
