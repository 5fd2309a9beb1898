// cmd/kafka-sandbox/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YaganovValera/kafka-sandbox/internal/app"
	"github.com/YaganovValera/kafka-sandbox/internal/config"
	"github.com/YaganovValera/kafka-sandbox/internal/generator"
	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kafka-sandbox:", err)
		os.Exit(1)
	}
}

// runtime bundles what every subcommand needs after setup.
type runtime struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "kafka-sandbox",
		Short:         "Kafka producer/consumer demonstration harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (optional)")

	setup := func() (*runtime, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		log, err := logger.New(cfg.LoggerConfig())
		if err != nil {
			return nil, err
		}
		if cfg.Logging.DevMode {
			cfg.Print()
		}
		return &runtime{cfg: cfg, log: log}, nil
	}

	root.AddCommand(
		newProducerCmd(setup),
		newConsumerCmd(setup),
		newConsoleProducerCmd(setup),
		newConsoleConsumerCmd(setup),
		newSequenceProducerCmd(setup),
		newSequenceConsumerCmd(setup),
		newTopicCmd(setup),
		delTopicCmd(setup),
		listTopicsCmd(setup),
	)
	return root
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// producerFlags holds the knobs shared by every producer command.
type producerFlags struct {
	topic     string
	blocking  bool
	partition int32
}

func (f *producerFlags) register(cmd *cobra.Command, defaultTopic string) {
	cmd.Flags().StringVar(&f.topic, "topic", defaultTopic, "topic to publish to")
	cmd.Flags().BoolVar(&f.blocking, "blocking", false, "wait for the broker ack on every send")
	cmd.Flags().Int32Var(&f.partition, "partition", -1, "pin all records to one partition (-1 = partitioner decides)")
}

// options resolves the flags against the loaded config. The --blocking
// flag wins over the file setting only when the operator set it.
func (f *producerFlags) options(cmd *cobra.Command, cfg *config.Config, fallbackTopic string) app.ProducerOptions {
	mode := produce.ModeNonBlocking
	if !cfg.Producer.NonBlocking {
		mode = produce.ModeBlocking
	}
	if cmd.Flags().Changed("blocking") {
		mode = produce.ModeNonBlocking
		if f.blocking {
			mode = produce.ModeBlocking
		}
	}

	topic := f.topic
	if topic == "" {
		topic = fallbackTopic
	}

	var partition *int32
	if f.partition >= 0 {
		p := f.partition
		partition = &p
	}
	return app.ProducerOptions{Topic: topic, Mode: mode, Partition: partition}
}

func newProducerCmd(setup func() (*runtime, error)) *cobra.Command {
	var flags producerFlags
	cmd := &cobra.Command{
		Use:   "producer",
		Short: "Publish simulated sensor readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			supplier := generator.NewSensorSupplier(rt.cfg.Producer.Interval)
			opts := flags.options(cmd, rt.cfg, rt.cfg.Topics.Measurements)
			return app.RunProducer(ctx, rt.cfg, opts, supplier, generator.SensorKey, rt.log)
		},
	}
	flags.register(cmd, "")
	return cmd
}

func newConsumerCmd(setup func() (*runtime, error)) *cobra.Command {
	var topic, group string
	cmd := &cobra.Command{
		Use:   "consumer",
		Short: "Print consumed sensor readings",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			if topic == "" {
				topic = rt.cfg.Topics.Measurements
			}
			opts := app.ConsumerOptions{Topic: topic, Group: group}
			return app.RunConsumer(ctx, rt.cfg, opts, generator.PrintSensorEvent(rt.log), rt.log)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to subscribe to")
	cmd.Flags().StringVar(&group, "group", "", "consumer group override")
	return cmd
}

func newConsoleProducerCmd(setup func() (*runtime, error)) *cobra.Command {
	var flags producerFlags
	cmd := &cobra.Command{
		Use:   "console-producer",
		Short: "Publish lines typed on stdin as chat messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			supplier := generator.NewChatSupplier(os.Stdin, generator.ChatSender())
			opts := flags.options(cmd, rt.cfg, rt.cfg.Topics.Messages)
			return app.RunProducer(ctx, rt.cfg, opts, supplier, generator.ChatKey, rt.log)
		},
	}
	flags.register(cmd, "")
	return cmd
}

func newConsoleConsumerCmd(setup func() (*runtime, error)) *cobra.Command {
	var topic, group string
	cmd := &cobra.Command{
		Use:   "console-consumer",
		Short: "Print consumed chat messages",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			if topic == "" {
				topic = rt.cfg.Topics.Messages
			}
			opts := app.ConsumerOptions{Topic: topic, Group: group}
			return app.RunConsumer(ctx, rt.cfg, opts, generator.PrintChatMessage(rt.log), rt.log)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to subscribe to")
	cmd.Flags().StringVar(&group, "group", "", "consumer group override")
	return cmd
}

func newSequenceProducerCmd(setup func() (*runtime, error)) *cobra.Command {
	var flags producerFlags
	cmd := &cobra.Command{
		Use:   "sequence-producer",
		Short: "Publish a strictly increasing number series",
		Long: "Publishes an increasing series persisted across restarts. " +
			"Pair with sequence-consumer to measure message loss and duplication.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			store, err := generator.OpenSequenceStore(rt.cfg.Sequence.StateFile)
			if err != nil {
				return err
			}
			supplier := generator.NewSequenceSupplier(store, rt.cfg.Sequence.Interval)
			opts := flags.options(cmd, rt.cfg, rt.cfg.Topics.Sequence)
			// The series is unkeyed: loss measurement does not need ordering
			// across restarts, and unkeyed records spread over partitions.
			return app.RunProducer(ctx, rt.cfg, opts, supplier, nil, rt.log)
		},
	}
	flags.register(cmd, "")
	return cmd
}

func newSequenceConsumerCmd(setup func() (*runtime, error)) *cobra.Command {
	var topic, group string
	cmd := &cobra.Command{
		Use:   "sequence-consumer",
		Short: "Validate a consumed number series for loss and duplicates",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			if topic == "" {
				topic = rt.cfg.Topics.Sequence
			}
			var validator generator.SequenceValidator
			opts := app.ConsumerOptions{Topic: topic, Group: group}
			return app.RunConsumer(ctx, rt.cfg, opts, generator.PrintSequenceEvent(&validator, rt.log), rt.log)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to subscribe to")
	cmd.Flags().StringVar(&group, "group", "", "consumer group override")
	return cmd
}

func newTopicCmd(setup func() (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "newtopic <name> [partitions]",
		Short: "Create a topic",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			partitions := int32(1)
			if len(args) == 2 {
				n, err := strconv.ParseInt(args[1], 10, 32)
				if err != nil || n < 1 {
					return fmt.Errorf("invalid partition count %q", args[1])
				}
				partitions = int32(n)
			}

			ctx, cancel := signalContext()
			defer cancel()
			return app.CreateTopic(ctx, rt.cfg, args[0], partitions, rt.log)
		},
	}
}

func delTopicCmd(setup func() (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "deltopic <name>",
		Short: "Delete a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()
			return app.DeleteTopic(ctx, rt.cfg, args[0], rt.log)
		},
	}
}

func listTopicsCmd(setup func() (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List cluster topics",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			ctx, cancel := signalContext()
			defer cancel()
			return app.ListTopics(ctx, rt.cfg, rt.log)
		},
	}
}
