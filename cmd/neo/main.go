package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	apiclient "github.com/kromedia/neo/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
	Operator    string `json:"operator"`
}

var buildVersion = "dev"

const requestTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "token":
		err = commandToken(args)
	case "inspect":
		err = commandInspect(args)
	case "reinspect":
		err = commandReinspect(args)
	case "list":
		err = commandList(args)
	case "report":
		err = commandReport(args)
	case "live":
		err = commandLive(args)
	case "interval":
		err = commandInterval(args)
	case "refresh":
		err = commandRefresh(args)
	case "events":
		err = commandEvents(args)
	case "watch":
		err = commandWatch(args)
	case "close":
		err = commandClose(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	operator := fs.String("operator", "", "Operator callsign")
	key := fs.String("key", "", "Operator access key (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*operator) == "" {
		return errors.New("--operator is required")
	}
	secret := strings.TrimSpace(*key)
	if secret == "" {
		fmt.Print("Access key: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read access key: %w", err)
		}
		secret = string(bytes)
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	tok, err := client.IssueToken(ctx, *operator, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = tok.AccessToken
	cfg.Operator = tok.OperatorID
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("token stored for %s (expires in %s)\n", tok.OperatorID, time.Duration(tok.ExpiresIn)*time.Second)
	return nil
}

// session loads the CLI config and returns an authenticated client.
func session() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please obtain a token first using 'neo token'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func requireID(name string, args []string) (string, []string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", nil, fmt.Errorf("usage: neo %s <inspection-id>", name)
	}
	return args[0], args[1:], nil
}

func commandInspect(args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: neo inspect <target>")
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	// Report generation can take a while.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	fmt.Printf("tracing %s...\n", args[0])
	insp, err := client.Inspect(ctx, token, args[0])
	if err != nil {
		return err
	}
	printInspection(insp)
	return nil
}

func commandReinspect(args []string) error {
	id, _, err := requireID("reinspect", args)
	if err != nil {
		return err
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	insp, err := client.Reinspect(ctx, token, id)
	if err != nil {
		return err
	}
	printInspection(insp)
	return nil
}

func commandList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of inspections")
	fs.Parse(args)

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	items, err := client.ListInspections(ctx, token, *limit)
	if err != nil {
		return err
	}
	for _, insp := range items {
		fmt.Printf("%s\t%s\t%s\tlive=%t\tticks=%d\t%s\n", insp.ID, insp.Target, insp.Status, insp.Live, insp.TickCount, insp.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func commandReport(args []string) error {
	id, rest, err := requireID("report", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	raw := fs.Bool("json", false, "Print the full report as JSON")
	fs.Parse(rest)

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if *raw {
		report, seq, err := client.Report(ctx, token, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "seq %d\n", seq)
		fmt.Println(string(report))
		return nil
	}
	insp, err := client.GetInspection(ctx, token, id)
	if err != nil {
		return err
	}
	printInspection(insp)
	return nil
}

func commandLive(args []string) error {
	id, rest, err := requireID("live", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
		return errors.New("usage: neo live <inspection-id> on|off")
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	state, err := client.SetLive(ctx, token, id, rest[0] == "on")
	if err != nil {
		return err
	}
	printState(state)
	return nil
}

func commandInterval(args []string) error {
	id, rest, err := requireID("interval", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: neo interval <inspection-id> <milliseconds>")
	}
	ms, err := strconv.Atoi(rest[0])
	if err != nil || ms <= 0 {
		return fmt.Errorf("invalid interval %q", rest[0])
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	state, err := client.SetInterval(ctx, token, id, time.Duration(ms)*time.Millisecond)
	if err != nil {
		return err
	}
	printState(state)
	return nil
}

func commandRefresh(args []string) error {
	id, _, err := requireID("refresh", args)
	if err != nil {
		return err
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	accepted, err := client.RequestIntegrityRefresh(ctx, token, id)
	if err != nil {
		return err
	}
	if accepted {
		fmt.Println("memory integrity refresh started")
	} else {
		fmt.Println("refresh ignored: memory is under assault or already refreshing")
	}
	return nil
}

func commandEvents(args []string) error {
	id, rest, err := requireID("events", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	history := fs.Bool("history", false, "Read persisted history instead of the live ring")
	limit := fs.Int("limit", 0, "Maximum number of history entries")
	fs.Parse(rest)

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	events, err := client.OscillatorEvents(ctx, token, id, *history, *limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%s\t%-16s\t%3d\tstep=%d\t%.0fHz\t%s via %s\n", e.Timestamp, e.SourceSpace, e.Intensity, e.FibonacciSequenceStep, e.AlertFrequencyHz, e.ThreatActor, e.TraceVector)
	}
	return nil
}

func commandWatch(args []string) error {
	id, _, err := requireID("watch", args)
	if err != nil {
		return err
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return client.Watch(ctx, token, id, func(env apiclient.Envelope) error {
		switch env.Type {
		case "oscillator_event":
			var e apiclient.OscillatorEvent
			if err := json.Unmarshal(env.Data, &e); err != nil {
				return err
			}
			fmt.Printf("[%d] ATTACK %s intensity=%d actor=%s vector=%s tone=%.0fHz\n", env.Seq, e.SourceSpace, e.Intensity, e.ThreatActor, e.TraceVector, e.AlertFrequencyHz)
		default:
			var r apiclient.ReportSummary
			if err := json.Unmarshal(env.Data, &r); err != nil {
				return err
			}
			fmt.Printf("[%d] latency=%dms loss=%.2f%% threats=%d signal=%s/%d integrity=%s patchwork=%s\n",
				env.Seq, r.KeyStats.LatencyMs, r.KeyStats.PacketLossPercent, r.KeyStats.ThreatsDetected,
				r.OscillatorSignal.SourceSpace, r.OscillatorSignal.Intensity, r.MemoryIntegrity.Status, r.PatchworkProtocol.Status)
		}
		return nil
	})
}

func commandClose(args []string) error {
	id, _, err := requireID("close", args)
	if err != nil {
		return err
	}
	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := client.CloseInspection(ctx, token, id); err != nil {
		return err
	}
	fmt.Println("inspection closed")
	return nil
}

func printInspection(insp apiclient.Inspection) {
	fmt.Printf("%s\t%s\t%s\tlive=%t\tinterval=%dms\tticks=%d\n", insp.ID, insp.Target, insp.Status, insp.Live, insp.TickIntervalMs, insp.TickCount)
	if insp.Error != "" {
		fmt.Printf("error: %s\n", insp.Error)
	}
	if r := insp.Report; r != nil {
		fmt.Printf("risk=%d latency=%dms threats=%d breach=%d%% integrity=%s patchwork=%s (%d active)\n",
			r.OverallRiskScore, r.KeyStats.LatencyMs, r.KeyStats.ThreatsDetected, r.KeyStats.BreachProbability,
			r.MemoryIntegrity.Status, r.PatchworkProtocol.Status, r.PatchworkProtocol.ActivePatches)
		if r.Summary != "" {
			fmt.Println(r.Summary)
		}
	}
}

func printState(s apiclient.SessionState) {
	fmt.Printf("live=%t interval=%dms running=%t ticks=%d seq=%d\n", s.Live, s.TickIntervalMs, s.Running, s.Ticks, s.Seq)
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:4000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "neo", "config.json"), nil
}

func printUsage() {
	fmt.Printf("neo CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	neo token --operator <callsign> [--key secret] [--api http://localhost:4000]
	neo inspect <target>
	neo reinspect <inspection-id>
	neo list [--limit N]
	neo report <inspection-id> [--json]
	neo live <inspection-id> on|off
	neo interval <inspection-id> <milliseconds>
	neo refresh <inspection-id>
	neo events <inspection-id> [--history] [--limit N]
	neo watch <inspection-id>
	neo close <inspection-id>
	neo version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
