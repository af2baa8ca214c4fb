// Interactive terminal client for the chat backend. Streams answers to
// stdout as they arrive and lists web sources when a reply was
// search-augmented.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"atmo-chat-be/pkg/chatclient"

	"github.com/fatih/color"
)

func main() {
	baseURL := flag.String("base", "http://localhost:3000", "backend base URL")
	model := flag.String("model", "", "model id (backend default if empty)")
	deepThink := flag.Bool("deep", false, "enable deep thinking mode")
	flag.Parse()

	prompt := color.New(color.FgGreen, color.Bold)
	assistant := color.New(color.FgCyan)
	errText := color.New(color.FgRed)
	dim := color.New(color.Faint)

	session := chatclient.NewSession(*baseURL,
		chatclient.WithModel(*model),
		chatclient.WithDeepThink(*deepThink),
		chatclient.WithDeltaHandler(func(delta string) {
			assistant.Print(delta)
		}),
	)

	fmt.Println("Atmo chat. Ctrl+C during a reply stops it, empty line quits.")

	stdin := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("you> ")
		if !stdin.Scan() {
			return
		}
		input := strings.TrimSpace(stdin.Text())
		if input == "" {
			return
		}

		ask(session, input, errText, dim)
	}
}

// ask runs one turn ("retry" reissues the last failed input). Ctrl+C
// while streaming aborts the reply but keeps the session and whatever
// text already arrived.
func ask(session *chatclient.Session, input string, errText, dim *color.Color) {
	ctx, stopNotify := signal.NotifyContext(context.Background(), os.Interrupt)
	var err error
	if input == "retry" {
		err = session.Retry(ctx)
	} else {
		err = session.SendMessage(ctx, input)
	}
	stopNotify()
	fmt.Println()

	if sources := session.Sources(); len(sources) > 0 {
		dim.Println("sources:")
		for i, src := range sources {
			dim.Printf("  %d. %s - %s\n", i+1, src.Title, src.URL)
		}
	}

	if err != nil {
		if chatErr := session.Err(); chatErr != nil {
			errText.Printf("error: %s\n", chatErr.Message)
			if chatErr.Retryable {
				dim.Println("(type 'retry' to try again)")
			}
		}
	}
}
