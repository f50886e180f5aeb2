// Package main provides the capture CLI: it executes a browser
// automation task against a supported web application and emits a JSON
// result describing the captured UI states.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/capture/pkg/apps"
	"github.com/entrhq/capture/pkg/config"
	"github.com/entrhq/capture/pkg/executor"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	App         string
	OutputDir   string
	Model       string
	Headless    bool
	Interactive bool
	PDFReport   bool
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("capture v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()
	defer cancel()

	if err := run(ctx, cliConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cliConfig.App, "app", "", "Target application (skip detection from task text)")
	flag.StringVar(&cliConfig.OutputDir, "output-dir", "", "Base directory for run output")
	flag.StringVar(&cliConfig.Model, "model", "", "LLM model for the agent")
	flag.BoolVar(&cliConfig.Headless, "headless", false, "Run the browser without a window")
	flag.BoolVar(&cliConfig.Interactive, "interactive", false, "Start an interactive task loop")
	flag.BoolVar(&cliConfig.PDFReport, "pdf-report", false, "Assemble screenshots into report.pdf")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 0, "Agent execution deadline (0 uses the configured default)")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "capture - UI state capture via browser automation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: capture [options] \"task description\"\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Execute a task, detecting the application from the text\n")
		fmt.Fprintf(os.Stderr, "  capture \"Create a new page in Notion titled Meeting Notes\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Pin the application explicitly\n")
		fmt.Fprintf(os.Stderr, "  capture -app github \"Open a new issue titled Bug report\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Interactive loop\n")
		fmt.Fprintf(os.Stderr, "  capture -interactive\n\n")
	}

	flag.Parse()
	return cliConfig
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	settings, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		return err
	}

	// CLI flags override file and environment values.
	if cliConfig.OutputDir != "" {
		settings.OutputDir = cliConfig.OutputDir
	}
	if cliConfig.Model != "" {
		settings.Model = cliConfig.Model
	}
	if cliConfig.Headless {
		settings.Headless = true
	}
	if cliConfig.PDFReport {
		settings.PDFReport = true
	}
	if cliConfig.Timeout > 0 {
		settings.AgentTimeout = cliConfig.Timeout
		if settings.ExtendedAgentTimeout < cliConfig.Timeout {
			settings.ExtendedAgentTimeout = cliConfig.Timeout
		}
	}

	if err := settings.ExpandPaths(); err != nil {
		return fmt.Errorf("invalid path setting: %w", err)
	}

	warnings, err := settings.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	controller, err := executor.NewController(settings)
	if err != nil {
		return err
	}

	if cliConfig.Interactive {
		return runInteractive(ctx, controller)
	}

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" {
		flag.Usage()
		return fmt.Errorf("a task description is required")
	}

	result := execute(ctx, controller, cliConfig.App, task)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(output))

	// A handled error result is still a recorded result; exit 0 either way.
	printSummary(os.Stderr, result)
	return nil
}

func printSummary(w *os.File, result *executor.Result) {
	if result.IsSuccess() {
		fmt.Fprintf(w, "%s: %d screenshots in %s\n", result.Status, result.Screenshots, result.OutputDir)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", result.Status, result.Error)
}

func execute(ctx context.Context, controller *executor.Controller, app, task string) *executor.Result {
	if app != "" {
		return controller.Execute(ctx, task, app)
	}
	return controller.ExecuteTask(ctx, task)
}

// Interactive mode styles.
var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// runInteractive reads tasks from stdin until EOF or an exit command.
func runInteractive(ctx context.Context, controller *executor.Controller) error {
	fmt.Println(promptStyle.Render("capture interactive mode"))
	fmt.Println(dimStyle.Render("type a task, or: apps, history, exit"))

	var history []*executor.Result
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("capture> "))
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return scanner.Err()
		case line == "apps":
			for _, key := range apps.Default().Keys() {
				fmt.Printf("  %s\n", key)
			}
			continue
		case line == "history":
			if len(history) == 0 {
				fmt.Println(dimStyle.Render("  no tasks yet"))
				continue
			}
			for i, result := range history {
				status := successStyle.Render(result.Status)
				if !result.IsSuccess() {
					status = errorStyle.Render(result.Status)
				}
				fmt.Printf("  %d. [%s] %s (%d screenshots)\n", i+1, status, result.App, result.Screenshots)
			}
			continue
		}

		result := controller.ExecuteTask(ctx, line)
		history = append(history, result)
		printInteractiveResult(result)
	}
	return scanner.Err()
}

func printInteractiveResult(result *executor.Result) {
	if result.IsSuccess() {
		fmt.Println(successStyle.Render(fmt.Sprintf("done: %d screenshots in %s", result.Screenshots, result.OutputDir)))
		if result.EstimatedCost != nil {
			fmt.Println(dimStyle.Render(fmt.Sprintf("tokens: %d  estimated cost: $%.4f", result.TotalTokens, *result.EstimatedCost)))
		}
		return
	}
	fmt.Println(errorStyle.Render("failed: " + result.Error))
}
