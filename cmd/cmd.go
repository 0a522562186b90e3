// Package cmd provides the CLI commands for the intake service.
//
// Commands:
//   - chat: Interactive complaint interview with a Bubble Tea TUI
//   - serve: HTTP API server for the web intake form
//
// Signal handling and graceful shutdown are implemented for both commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the intake CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "chat":
		return runChat()
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("intake - OPCC complaint intake service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  intake chat         Start an interactive complaint interview")
	fmt.Println("  intake serve [addr] Start the HTTP API server (default: localhost:8080)")
	fmt.Println("  intake --version    Show version information")
	fmt.Println("  intake --help       Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /attach <path>      Attach a photo or video as evidence")
	fmt.Println("  /report [path]      Save the complaint report as HTML")
	fmt.Println("  /new                Discard the interview and start over")
	fmt.Println("  /help               Show available commands")
	fmt.Println("  /exit, /quit        Exit")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY      Required: Gemini API key")
	fmt.Println("  SENDGRID_API_KEY    Required: SendGrid API key for report delivery")
	fmt.Println("  DATABASE_URL        Optional: Postgres URL for the state backend")
	fmt.Println("  DEBUG               Optional: Enable debug logging")
}
