package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/engine"
	"github.com/xela07ax/vehicle-health-pipeline/internal/infra"
	"github.com/xela07ax/vehicle-health-pipeline/internal/reasoning"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simulate",
		Short:         "Run the vehicle health pipeline locally against simulated telemetry",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newFleetCmd())
	return root
}

type runFlags struct {
	vehicle    string
	scenario   string
	misfire    bool
	looseMount bool
	apiKey     string
	provider   string
	model      string
	timeout    time.Duration
}

func newRunCmd() *cobra.Command {
	f := runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			logger, err := infra.NewLogger(infra.LoggerConfig{Level: level, Format: "console"})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()
			return runOnce(ctx, cmd.OutOrStdout(), logger, f)
		},
	}

	cmd.Flags().StringVar(&f.vehicle, "vehicle", "VIN-1001", "vehicle identifier")
	cmd.Flags().StringVar(&f.scenario, "scenario", telemetry.ScenarioNormal, `telemetry scenario ("Normal" or "Rod Knock")`)
	cmd.Flags().BoolVar(&f.misfire, "misfire", false, "inject ignition misfire")
	cmd.Flags().BoolVar(&f.looseMount, "loose-mount", false, "inject loose engine mount wobble")
	cmd.Flags().StringVar(&f.apiKey, "api-key", os.Getenv("INFERENCE_API_KEY"), "inference credential; empty means heuristics only")
	cmd.Flags().StringVar(&f.provider, "provider", reasoning.ProviderGemini, "inference provider (gemini, anthropic, none)")
	cmd.Flags().StringVar(&f.model, "model", "", "model override")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 2*time.Minute, "overall run timeout")
	return cmd
}

func runOnce(ctx context.Context, out io.Writer, logger *zap.Logger, f runFlags) error {
	switch f.scenario {
	case telemetry.ScenarioNormal, telemetry.ScenarioRodKnock:
	default:
		return fmt.Errorf("unknown scenario %q", f.scenario)
	}

	client, err := reasoning.NewProviderClient(f.provider, f.model)
	if err != nil {
		return err
	}
	inference := simulateInference()
	if client != nil {
		client = reasoning.NewReliableClient(client, reasoning.ReliabilityConfig{
			Timeout:     inference.Timeout,
			MaxAttempts: inference.MaxAttempts,
		})
	}

	sink := audit.NewAgentFS(audit.NewMemoryStore(), logger, audit.Options{})
	sink.Start()
	defer sink.Stop()

	orch, err := engine.NewOrchestrator(engine.Deps{
		Sensors:    telemetry.NewSimulator(nil),
		Reasoner:   reasoning.NewAgent(client, logger, reasoning.WithTimeout(inference.CallBudget())),
		Inventory:  support.NewInventory(nil),
		Locator:    support.NewLocationResolver(support.DefaultWorkshops, nil),
		Scheduler:  support.NewScheduler(nil),
		Compliance: compliance.NewGate(logger),
		Auditor:    sink,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	res, err := orch.Run(ctx, engine.Request{
		VehicleID:  f.vehicle,
		Scenario:   f.scenario,
		Toggles:    telemetry.Toggles{Misfire: f.misfire, LooseMount: f.looseMount},
		Credential: f.apiKey,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	return printJSON(out, res)
}

// simulateInference — таймаут на попытку и число попыток для CLI.
// Агенту отдаем CallBudget, иначе его таймаут срежет повторы.
func simulateInference() infra.InferenceConfig {
	return infra.InferenceConfig{Timeout: 30 * time.Second, MaxAttempts: 3}
}

func newFleetCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Print synthetic fleet summaries with the OEM strategy for each faulted vehicle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size <= 0 {
				return fmt.Errorf("size must be positive, got %d", size)
			}
			type row struct {
				Vehicle  domain.FleetSummary `json:"vehicle"`
				Strategy *domain.OEMStrategy `json:"strategy,omitempty"`
			}
			rows := make([]row, 0, size)
			for _, s := range telemetry.NewSimulator(nil).FleetSummaries(size) {
				r := row{Vehicle: s}
				if s.HealthStatus == domain.SeverityCritical {
					st := support.OEMStrategy(s.FaultType)
					r.Strategy = &st
				}
				rows = append(rows, r)
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVar(&size, "size", 50, "number of vehicles")
	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
