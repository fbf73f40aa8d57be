package console

import (
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/exp/slices"

	"rcp-bridge/rcp"
)

// CommandDefinition holds one console command: its syntax, its parser, and
// the completion candidates it offers.
type CommandDefinition struct {
	Name              string
	Aliases           []string
	Summary           string
	Syntax            string
	Description       []string
	ParseFunc         func(parts []string, rest string) (*Command, error)
	GetCandidatesFunc func(c CameraController, d prompt.Document) []prompt.Suggest
}

var settingChoices = map[string][]rcp.Choice{
	SettingISO:    rcp.ISOChoices,
	SettingFPS:    rcp.FrameRateChoices,
	SettingFormat: rcp.RecordFormatChoices,
}

// CommandTable defines every console command.
var CommandTable = []CommandDefinition{
	{
		Name:    "set",
		Summary: "Change a camera setting",
		Syntax:  "set iso|fps|format <value>",
		Description: []string{
			"iso: sensor sensitivity (e.g. set iso 800)",
			"fps: sensor frame rate (e.g. set fps 23.98)",
			"format: record format (e.g. set format \"4K 16:9\")",
			"Values outside the supported list are rejected.",
		},
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			if len(parts) < 3 {
				return nil, fmt.Errorf("usage: set iso|fps|format <value>")
			}
			setting := parts[1]
			if _, ok := settingChoices[setting]; !ok {
				return nil, fmt.Errorf("unknown setting: %s (expected iso, fps, or format)", setting)
			}
			cmd := newCommand(CmdSet)
			cmd.Setting = setting
			cmd.Value = strings.Trim(strings.TrimSpace(strings.TrimPrefix(rest, setting)), `"`)
			return cmd, nil
		},
		GetCandidatesFunc: func(c CameraController, d prompt.Document) []prompt.Suggest {
			words := splitWords(d.TextBeforeCursor())
			if len(words) == 2 {
				return []prompt.Suggest{
					{Text: SettingISO, Description: "Sensor sensitivity"},
					{Text: SettingFPS, Description: "Sensor frame rate"},
					{Text: SettingFormat, Description: "Record format"},
				}
			}
			if len(words) == 3 {
				choices, ok := settingChoices[words[1]]
				if !ok {
					return []prompt.Suggest{}
				}
				suggests := make([]prompt.Suggest, 0, len(choices))
				for _, choice := range choices {
					suggests = append(suggests, prompt.Suggest{Text: choice.Label})
				}
				return suggests
			}
			return []prompt.Suggest{}
		},
	},
	{
		Name:    "record",
		Aliases: []string{"rec"},
		Summary: "Start or stop recording",
		Syntax:  "record start|stop",
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			if len(parts) != 2 || (parts[1] != "start" && parts[1] != "stop") {
				return nil, fmt.Errorf("usage: record start|stop")
			}
			cmd := newCommand(CmdRecord)
			cmd.StartRecord = parts[1] == "start"
			return cmd, nil
		},
		GetCandidatesFunc: func(c CameraController, d prompt.Document) []prompt.Suggest {
			return []prompt.Suggest{
				{Text: "start"},
				{Text: "stop"},
			}
		},
	},
	{
		Name:    "raw",
		Summary: "Send a raw JSON message to the camera",
		Syntax:  "raw <json>",
		Description: []string{
			"The payload is sent verbatim on the camera link.",
			"Example: raw {\"type\": \"rcp_get\", \"id\": \"ISO\"}",
		},
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			if rest == "" {
				return nil, fmt.Errorf("usage: raw <json>")
			}
			cmd := newCommand(CmdRaw)
			cmd.Value = rest
			return cmd, nil
		},
	},
	{
		Name:    "status",
		Aliases: []string{"st"},
		Summary: "Show connection state and current variables",
		Syntax:  "status",
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			return newCommand(CmdStatus), nil
		},
	},
	{
		Name:    "connect",
		Summary: "Connect, or reconnect to a different camera",
		Syntax:  "connect [host]",
		Description: []string{
			"Without a host, retries the configured camera.",
			"With a host, switches the session to that camera.",
		},
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			if len(parts) > 2 {
				return nil, fmt.Errorf("usage: connect [host]")
			}
			cmd := newCommand(CmdConnect)
			if len(parts) == 2 {
				cmd.Value = parts[1]
			}
			return cmd, nil
		},
	},
	{
		Name:    "debug",
		Summary: "Toggle debug logging",
		Syntax:  "debug [on|off]",
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			cmd := newCommand(CmdDebug)
			if len(parts) > 1 {
				mode := parts[1]
				if mode != "on" && mode != "off" {
					return nil, fmt.Errorf("usage: debug [on|off]")
				}
				cmd.DebugMode = &mode
			}
			return cmd, nil
		},
		GetCandidatesFunc: func(c CameraController, d prompt.Document) []prompt.Suggest {
			return []prompt.Suggest{
				{Text: "on"},
				{Text: "off"},
			}
		},
	},
	{
		Name:    "help",
		Aliases: []string{"?"},
		Summary: "Show usage",
		Syntax:  "help [command]",
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			cmd := newCommand(CmdHelp)
			if len(parts) > 1 {
				cmd.HelpCommand = &parts[1]
			}
			return cmd, nil
		},
	},
	{
		Name:    "quit",
		Aliases: []string{"exit"},
		Summary: "Exit the console",
		Syntax:  "quit",
		ParseFunc: func(parts []string, rest string) (*Command, error) {
			return newCommand(CmdQuit), nil
		},
	},
}

// help completes with the command names themselves. Assigned after the table
// exists: a closure inside the literal would make CommandTable refer to
// itself during initialization.
func init() {
	for i := range CommandTable {
		if CommandTable[i].Name == "help" {
			CommandTable[i].GetCandidatesFunc = func(c CameraController, d prompt.Document) []prompt.Suggest {
				return commandNameCandidates()
			}
		}
	}
}

// PrintCommandSummary prints a one-line summary for every command.
func PrintCommandSummary() {
	fmt.Println("Commands:")

	for _, cmd := range CommandTable {
		aliases := ""
		if len(cmd.Aliases) > 0 {
			aliases = fmt.Sprintf(", %s", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Printf("  %-12s: %s\n", cmd.Name+aliases, cmd.Summary)
	}

	fmt.Println("")
	fmt.Println("Type 'help <command>' for details. Example: 'help set'")
}

// PrintCommandDetail prints syntax and description for one command.
func PrintCommandDetail(commandName string) {
	for _, cmd := range CommandTable {
		if cmd.Name == commandName || slices.Contains(cmd.Aliases, commandName) {
			fmt.Printf("  %s: %s\n", cmd.Name, cmd.Summary)
			fmt.Printf("  Syntax: %s\n", cmd.Syntax)

			if len(cmd.Description) > 0 {
				fmt.Println("  Details:")
				for _, line := range cmd.Description {
					fmt.Printf("    %s\n", line)
				}
			}
			return
		}
	}

	fmt.Printf("Unknown command: %s\n", commandName)
	fmt.Println("Type 'help' to list available commands")
}

// PrintUsage prints the summary, or detail for one command.
func PrintUsage(commandName *string) {
	if commandName == nil {
		fmt.Println("RED camera control console")
		PrintCommandSummary()
	} else {
		PrintCommandDetail(*commandName)
	}
}
