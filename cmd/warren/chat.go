package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive intake conversation in the terminal",
	Long: `Starts a single conversation on stdin/stdout. Without an API key the
scripted model client answers, which is enough to walk the flow end to end.`,
	Run: func(cmd *cobra.Command, args []string) {
		w, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing warren: %v\n", err)
			os.Exit(1)
		}
		ctx := context.Background()
		defer w.app.Close(ctx)

		id := uuid.NewString()
		reply, err := w.app.Start(ctx, id)
		if err != nil {
			fmt.Printf("Error starting conversation: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("--- Warren Intake (type 'exit' to quit) ---")
		fmt.Println(reply.Text)

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("> ")
			text, err := reader.ReadString('\n')
			if err != nil {
				break
			}
			input := strings.TrimSpace(text)
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				fmt.Println("Bye!")
				break
			}

			reply, err = w.app.Deliver(ctx, id, input)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				break
			}
			fmt.Println(reply.Text)

			if reply.Status.Terminal() {
				fmt.Printf("[conversation %s: %s]\n", id, reply.Status)
				break
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
