package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// runVersion displays version and key environment information.
func runVersion() {
	fmt.Printf("intake %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Println()
		fmt.Println("Hint: GEMINI_API_KEY is not set")
		fmt.Println("  export GEMINI_API_KEY=your-api-key")
	}
}
