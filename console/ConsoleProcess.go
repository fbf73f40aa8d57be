package console

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"
)

// ConsoleProcess runs the interactive console until quit or EOF. When stdin
// is not a terminal (piped input, tests) it falls back to plain line reading
// without prompt rendering.
func ConsoleProcess(ctx context.Context, camera CameraController) {
	processor := NewCommandProcessor(ctx, camera)
	processor.Start()

	fmt.Println("help for usage, quit to exit")

	parser := NewCommandParser()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	var readLine func() (string, bool)
	if interactive {
		c := &completer{camera: camera}
		var history []string
		readLine = func() (string, bool) {
			line := prompt.Input("> ", c.Complete,
				prompt.OptionHistory(history),
				prompt.OptionShowCompletionAtStart(),
			)
			if line != "" {
				history = append(history, line)
			}
			return line, true
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		readLine = func() (string, bool) {
			if !scanner.Scan() {
				return "", false
			}
			return scanner.Text(), true
		}
	}

	for {
		select {
		case <-ctx.Done():
			processor.Stop()
			return
		default:
		}

		line, ok := readLine()
		if !ok {
			processor.Stop()
			return
		}

		cmd, err := parser.ParseCommand(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if cmd == nil {
			continue
		}

		if cmd.Type == CmdQuit {
			close(cmd.Done)
			processor.Stop()
			return
		}

		if err := processor.SendCommand(cmd); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
