package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ylztf/LWI/config"
	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/core/statecollect"
	"github.com/ylztf/LWI/infra/logger"
	"github.com/ylztf/LWI/infra/mqtt"
)

var statusWait time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the load state of every configured peer",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().DurationVar(&statusWait, "wait", 3*time.Second, "time to wait for replies")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// A throwaway identity keeps the query out of the group's drafting traffic.
	self := uuid.NewString()
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = "lwi-status-" + self[:8]
	client, err := mqtt.NewPahoClient(mqttCfg, self)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	collector := statecollect.New(logger.New("status"))
	defer collector.Close()
	client.OnStatus(collector.HandleReport)

	targets := cfg.Agent.Peers
	if cfg.Agent.UUID != "" {
		targets = append(targets, cfg.Agent.UUID)
	}
	query := model.DraftMessage{Kind: model.KindLoad, Source: self}
	for _, peer := range targets {
		if err := client.Send(peer, query); err != nil {
			fmt.Printf("%s: query failed: %v\n", peer, err)
		}
	}

	time.Sleep(statusWait)

	entries := collector.Snapshot()
	replied := make(map[string]bool, len(entries))
	for _, e := range entries {
		replied[e.UUID] = true
		fmt.Printf("%s  %s\n", e.UUID, e.Status)
	}
	for _, peer := range targets {
		if !replied[peer] {
			fmt.Printf("%s  no reply\n", peer)
		}
	}
	return nil
}
