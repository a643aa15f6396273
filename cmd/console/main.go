package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pairsbot-go/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()
	path := filepath.Clean(*cfgPath)

	reader := bufio.NewReader(os.Stdin)

	// cfg holds the file as written; defaults are derived only for display and validation
	cfg, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Pairs Bot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit method and thresholds")
		fmt.Println("3) Edit pairs")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editPairs(reader, cfg)
		case "4":
			if err := save(path, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launch(reader, path)
		case "6":
			reloaded, err := load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(raw *config.Config) {
	cfg, err := raw.Effective()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config is invalid: %v\n", err)
		cfg = raw
	}
	t := cfg.Trading
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Mode: %s | Method: %s\n", t.Mode, t.Method)
	fmt.Printf("Entry threshold: %g | Exit threshold: %g\n", t.EntryThreshold, t.ExitThreshold)
	fmt.Printf("Window: %s | Period: %s | Poll: %ds\n", t.Window, t.Period, t.PollIntervalSeconds)
	fmt.Printf("Position size: %d | Market hours only: %v (%s)\n", t.PositionSize, t.MarketHoursOnly, t.MarketCalendar)
	fmt.Printf("Journal: %s %s\n", cfg.Journal.Format, cfg.Journal.Path)
	fmt.Println("Pairs:")
	for i, p := range t.Pairs {
		fmt.Printf("  %d) %s / %s\n", i+1, p.Symbol1, p.Symbol2)
	}
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Method / Thresholds ---")
	fmt.Printf("Method (%s|%s) [%s]: ", config.MethodPercentage, config.MethodZScore, cfg.Trading.Method)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Trading.Method = strings.ToLower(strings.TrimSpace(line))
	}
	cfg.Trading.EntryThreshold = promptFloat(reader, "Entry threshold", cfg.Trading.EntryThreshold)
	cfg.Trading.ExitThreshold = promptFloat(reader, "Exit threshold (0 = default)", cfg.Trading.ExitThreshold)
	cfg.Trading.PositionSize = int(promptFloat(reader, "Position size (shares)", float64(cfg.Trading.PositionSize)))
	cfg.Trading.PollIntervalSeconds = int(promptFloat(reader, "Poll interval (seconds)", float64(cfg.Trading.PollIntervalSeconds)))
}

func editPairs(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Pairs ---")
	fmt.Print("Add pair as SYM1/SYM2 (blank to skip): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		s1, s2, ok := strings.Cut(strings.TrimSpace(line), "/")
		if !ok || strings.TrimSpace(s1) == "" || strings.TrimSpace(s2) == "" {
			fmt.Println("expected SYM1/SYM2")
		} else {
			cfg.Trading.Pairs = append(cfg.Trading.Pairs, config.Pair{
				Symbol1: strings.ToUpper(strings.TrimSpace(s1)),
				Symbol2: strings.ToUpper(strings.TrimSpace(s2)),
			})
		}
	}
	fmt.Print("Remove pair number (blank to skip): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		idx, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || idx < 1 || idx > len(cfg.Trading.Pairs) {
			fmt.Println("invalid pair number")
			return
		}
		cfg.Trading.Pairs = append(cfg.Trading.Pairs[:idx-1], cfg.Trading.Pairs[idx:]...)
	}
}

func load(path string) (*config.Config, error) {
	raw, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	if _, err := raw.Effective(); err != nil {
		return nil, err
	}
	return raw, nil
}

// save writes the values as entered so derived defaults (window, concurrency) are recomputed on load.
func save(path string, cfg *config.Config) error {
	if _, err := cfg.Effective(); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func launch(reader *bufio.Reader, path string) {
	fmt.Println("Launching pairs bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/pairsbot", "-config", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %g\n", current)
		return current
	}
	return val
}
