package console

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rcp-bridge/rcp"
	"rcp-bridge/rcp/log"
)

// CommandProcessor executes parsed commands against the camera handler on a
// dedicated goroutine.
type CommandProcessor struct {
	camera  CameraController
	cmdChan chan *Command
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewCommandProcessor(ctx context.Context, camera CameraController) *CommandProcessor {
	processorCtx, cancel := context.WithCancel(ctx)

	return &CommandProcessor{
		camera:  camera,
		cmdChan: make(chan *Command),
		done:    make(chan struct{}),
		ctx:     processorCtx,
		cancel:  cancel,
	}
}

func (p *CommandProcessor) Start() {
	go p.processCommands()
}

func (p *CommandProcessor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	select {
	case <-p.done:
		return
	default:
		close(p.cmdChan)
		<-p.done
	}
}

// SendCommand submits a command and blocks until it has been executed.
func (p *CommandProcessor) SendCommand(cmd *Command) error {
	p.cmdChan <- cmd
	<-cmd.Done
	return cmd.Error
}

func (p *CommandProcessor) processCommands() {
	defer close(p.done)

	for cmd := range p.cmdChan {
		select {
		case <-p.ctx.Done():
			close(cmd.Done)
			return
		default:
		}

		switch cmd.Type {
		case CmdQuit:
			close(cmd.Done)
			return
		case CmdHelp:
			PrintUsage(cmd.HelpCommand)
		case CmdSet:
			cmd.Error = p.processSetCommand(cmd)
		case CmdRecord:
			if cmd.StartRecord {
				p.camera.StartRecording()
			} else {
				p.camera.StopRecording()
			}
		case CmdRaw:
			p.camera.SendRaw(cmd.Value)
		case CmdStatus:
			p.printStatus()
		case CmdConnect:
			if cmd.Value != "" {
				p.camera.Reconfigure(cmd.Value)
			} else {
				p.camera.Connect()
			}
		case CmdDebug:
			cmd.Error = p.processDebugCommand(cmd)
		}

		close(cmd.Done)
	}
}

// processSetCommand validates the value against the setting's supported
// choices before handing it to the camera handler.
func (p *CommandProcessor) processSetCommand(cmd *Command) error {
	choices := settingChoices[cmd.Setting]
	if _, ok := rcp.FindChoice(choices, cmd.Value); !ok {
		return fmt.Errorf("unsupported %s value: %q (supported: %s)",
			cmd.Setting, cmd.Value, strings.Join(rcp.ChoiceLabels(choices), ", "))
	}

	switch cmd.Setting {
	case SettingISO:
		p.camera.SetISO(cmd.Value)
	case SettingFPS:
		p.camera.SetFrameRate(cmd.Value)
	case SettingFormat:
		p.camera.SetRecordFormat(cmd.Value)
	}
	return nil
}

func (p *CommandProcessor) processDebugCommand(cmd *Command) error {
	if cmd.DebugMode == nil {
		if log.IsDebug() {
			fmt.Println("debug: on")
		} else {
			fmt.Println("debug: off")
		}
		return nil
	}

	log.SetDebug(*cmd.DebugMode == "on")
	fmt.Printf("debug: %s\n", *cmd.DebugMode)
	return nil
}

func (p *CommandProcessor) printStatus() {
	state, status := p.camera.State()
	if status != "" {
		fmt.Printf("connection: %s (%s)\n", state, status)
	} else {
		fmt.Printf("connection: %s\n", state)
	}

	variables := p.camera.Variables()
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := variables[name]
		if value == "" {
			value = "(unknown)"
		}
		fmt.Printf("  %-14s %s\n", name, value)
	}
}
