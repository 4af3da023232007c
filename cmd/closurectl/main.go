// Package main provides an operator CLI for session closure jobs: publishing a
// job by hand and inspecting job payloads taken off the topic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"youthsessions/internal/platform/config"
	"youthsessions/internal/platform/kafka/producer"
	"youthsessions/internal/platform/logger"
	"youthsessions/internal/sessions/scheduler"
	platformstrings "youthsessions/pkg/platform/strings"
)

type jobOutput struct {
	StructureID string   `json:"structure_id"`
	SessionIDs  []string `json:"session_ids"`
	ObservedAt  string   `json:"observed_at"`
	JobID       string   `json:"job_id,omitempty"`
	Topic       string   `json:"topic,omitempty"`
}

func main() {
	enqueueCmd := flag.NewFlagSet("enqueue", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)

	enqueueStructure := enqueueCmd.String("structure", "", "Structure ID owning the sessions (required)")
	enqueueSessions := enqueueCmd.String("sessions", "", "Comma-separated partner session IDs (required)")
	enqueueObserved := enqueueCmd.String("observed-at", "", "Closure time, RFC 3339. Defaults to now.")
	enqueueJSON := enqueueCmd.Bool("json", false, "Output as JSON")

	inspectFile := inspectCmd.String("file", "", "Payload file. Reads stdin if empty.")
	inspectJSON := inspectCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "enqueue":
		_ = enqueueCmd.Parse(os.Args[2:])
		enqueue(*enqueueStructure, *enqueueSessions, *enqueueObserved, *enqueueJSON)
	case "inspect":
		_ = inspectCmd.Parse(os.Args[2:])
		inspect(*inspectFile, *inspectJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("%s\n", `closurectl - Publish and inspect session closure jobs

Kafka settings are read from the same environment as the server
(KAFKA_BROKERS, KAFKA_CLOSURE_TOPIC, ...).

Usage:
  closurectl <command> [flags]

Commands:
  enqueue   Publish a closure job for sessions of one structure
  inspect   Decode a closure job payload

Examples:
  # Close two sessions as of now
  closurectl enqueue -structure 75001 -sessions 42,43

  # Close a session as of a past observation
  closurectl enqueue -structure 75001 -sessions 42 -observed-at 2024-03-05T12:00:00Z

  # Decode a payload copied from the topic
  kcat -C -t sessions.closure-jobs -c 1 -f '%s' | closurectl inspect

Use "closurectl <command> -h" for more information about a command.`)
}

func enqueue(structureID, sessions, observedAt string, jsonOutput bool) {
	if structureID == "" {
		exitf("-structure is required")
	}
	ids := platformstrings.SplitList(sessions)
	if len(ids) == 0 {
		exitf("-sessions is required")
	}
	observed := time.Now().UTC()
	if observedAt != "" {
		t, err := time.Parse(time.RFC3339, observedAt)
		if err != nil {
			exitf("Invalid -observed-at: %v", err)
		}
		observed = t.UTC()
	}

	cfg, err := config.FromEnv()
	if err != nil {
		exitf("Invalid configuration: %v", err)
	}
	if !cfg.Kafka.Enabled() {
		exitf("KAFKA_BROKERS is required")
	}
	log := logger.New(cfg.LogLevel)

	p, err := producer.New(producer.Config{
		Brokers:         cfg.Kafka.Brokers,
		Acks:            cfg.Kafka.Acks,
		Retries:         cfg.Kafka.Retries,
		DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
	}, log)
	if err != nil {
		exitf("Error connecting to Kafka: %v", err)
	}
	defer func() { _ = p.Close() }()

	s, err := scheduler.NewKafka(p, scheduler.WithTopic(cfg.Kafka.ClosureTopic), scheduler.WithLogger(log))
	if err != nil {
		exitf("Error building scheduler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Kafka.DeliveryTimeout+5*time.Second)
	defer cancel()
	if err := s.ScheduleClosure(ctx, ids, structureID, observed); err != nil {
		exitf("Error publishing job: %v", err)
	}

	out := jobOutput{
		StructureID: structureID,
		SessionIDs:  ids,
		ObservedAt:  observed.Format(time.RFC3339),
		Topic:       cfg.Kafka.ClosureTopic,
	}
	if jsonOutput {
		printJSON(out)
		return
	}
	fmt.Println("Closure Job Published")
	fmt.Println("=====================")
	printJob(out)
}

func inspect(file string, jsonOutput bool) {
	var (
		raw []byte
		err error
	)
	if file == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		exitf("Error reading payload: %v", err)
	}

	job, err := scheduler.Decode(raw)
	if err != nil {
		exitf("%v", err)
	}
	out := jobOutput{
		StructureID: job.StructureID,
		SessionIDs:  job.SessionIDs,
		ObservedAt:  job.ObservedAt.UTC().Format(time.RFC3339),
		JobID:       job.JobID,
	}
	if jsonOutput {
		printJSON(out)
		return
	}
	fmt.Println("Closure Job")
	fmt.Println("===========")
	printJob(out)
}

func printJob(out jobOutput) {
	if out.JobID != "" {
		fmt.Printf("Job ID:      %s\n", out.JobID)
	}
	if out.Topic != "" {
		fmt.Printf("Topic:       %s\n", out.Topic)
	}
	fmt.Printf("Structure:   %s\n", out.StructureID)
	fmt.Printf("Observed At: %s\n", out.ObservedAt)
	fmt.Printf("Sessions:    %s\n", strings.Join(out.SessionIDs, ", "))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitf("Error encoding JSON: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
