package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptofono/cryptofono/internal/config"
	"github.com/cryptofono/cryptofono/internal/db"
	"github.com/cryptofono/cryptofono/internal/kafka"
	"github.com/cryptofono/cryptofono/internal/repository"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"github.com/cryptofono/cryptofono/internal/worker"
	"github.com/spf13/cobra"
)

var archiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Run transaction archive worker (Kafka -> ClickHouse)",
	RunE:  runArchiver,
}

func runArchiver(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = wallet.TransactionsKafkaTopic
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "cryptofono-archiver"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	archive := repository.NewCHTransactionsRepository(chDB)

	w := worker.NewArchiver(consumer, archive, cfg.Archiver.BatchSize, cfg.Archiver.BatchWait)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> archiver started topic=%s group=%s batchSize=%d batchWait=%s",
		topic, groupID, w.BatchSize, w.BatchWait)

	return w.Run(ctx)
}
