package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devbot",
	Short: "Telegram bot generating Ukrainian dev content",
	Long: "devbot offers blog ideas, JS tasks, frontend quizzes, quotes and stories in Telegram,\n" +
		"generated by Gemini or OpenAI and never repeating what it already produced.",
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(runCmd, ledgerCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
