// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/export"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a local command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., ":help")
	Name string

	// Aliases are alternative names (e.g., ":h", ":?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., ":export [mail|clip|file]")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler Handler

	// RequiresUnlock commands fail with app.ErrLocked while locked
	RequiresUnlock bool

	// Confirm, when set, is asked before running if confirmations are on
	Confirm string

	// Hidden commands don't appear in help
	Hidden bool
}

// Handler executes a command.
type Handler func(ctx context.Context, env *Context, args []string) (Outcome, error)

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
	ArgTypeCommand               // Another command name
)

// Outcome tells a front end what to do after a command ran.
type Outcome struct {
	// Message is shown to the user
	Message string

	// Quit ends the program
	Quit bool

	// Locked means the session gate was closed
	Locked bool

	// Refresh means the transcript changed
	Refresh bool
}

// ErrUnknownCommand is returned for an unregistered command name.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context provides access to application state for command handlers.
type Context struct {
	// App is the running application
	App *app.App

	// Config provides export and chat settings; App.Config when nil
	Config *config.Config

	// Open launches a URI in the platform handler
	Open func(uri string) error

	// Copy places text on the clipboard
	Copy func(text string) error
}

// NewContext creates a command context with the platform hand-off helpers.
func NewContext(a *app.App) *Context {
	return &Context{
		App:    a,
		Config: a.Config,
		Open:   export.OpenURI,
		Copy:   export.CopyToClipboard,
	}
}

func (c *Context) config() *config.Config {
	if c.Config != nil {
		return c.Config
	}
	if c.App != nil && c.App.Config != nil {
		return c.App.Config
	}
	return config.Default()
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Execute parses input and runs the matching command.
func (r *Registry) Execute(ctx context.Context, env *Context, input string) (Outcome, error) {
	res := NewParser(r).Parse(input)
	if !res.IsCommand {
		return Outcome{}, fmt.Errorf("%q is not a command", input)
	}
	if res.Command == nil {
		if s := r.Suggest(res.CommandName); s != "" {
			return Outcome{}, fmt.Errorf("%w: %s (did you mean %s?)", ErrUnknownCommand, res.CommandName, s)
		}
		return Outcome{}, fmt.Errorf("%w: %s (try :help)", ErrUnknownCommand, res.CommandName)
	}
	return r.Run(ctx, env, res.Command, res.Args)
}

// Run executes a resolved command with its arguments.
func (r *Registry) Run(ctx context.Context, env *Context, cmd *Command, args []string) (Outcome, error) {
	if err := ValidateArgs(cmd, args); err != nil {
		return Outcome{}, err
	}
	if cmd.RequiresUnlock && (env == nil || env.App == nil || !env.App.IsUnlocked()) {
		return Outcome{}, app.ErrLocked
	}
	return cmd.Handler(ctx, env, args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        ":help",
		Aliases:     []string{":h", ":?"},
		Description: "Show available commands",
		Usage:       ":help [command]",
		Args: []ArgDef{
			{Name: "command", Type: ArgTypeCommand, Description: "Command to describe"},
		},
		Handler: r.handleHelp,
	})

	r.Register(&Command{
		Name:           ":pro",
		Aliases:        []string{":upgrade"},
		Description:    "Switch to RK AI Pro (image generation)",
		Handler:        handlePro,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:           ":standard",
		Aliases:        []string{":downgrade"},
		Description:    "Switch back to the Standard tier",
		Handler:        handleStandard,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:           ":clear",
		Description:    "Clear the chat history",
		Confirm:        "Clear the entire chat history?",
		Handler:        handleClear,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:        ":export",
		Aliases:     []string{":e"},
		Description: "Export the chat history",
		Usage:       ":export [mail|clip|file]",
		Args: []ArgDef{
			{
				Name:        "target",
				Type:        ArgTypeEnum,
				Values:      []string{"mail", "clip", "file"},
				Description: "Where to send the history",
			},
		},
		Handler:        handleExport,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:        ":history",
		Description: "List recent turns",
		Usage:       ":history [count]",
		Args: []ArgDef{
			{Name: "count", Type: ArgTypeString, Description: "Number of turns to show"},
		},
		Handler:        handleHistory,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:        ":save-image",
		Aliases:     []string{":img"},
		Description: "Save the latest generated image",
		Usage:       ":save-image [path]",
		Args: []ArgDef{
			{Name: "path", Type: ArgTypeFile, Description: "Destination file"},
		},
		Handler:        handleSaveImage,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:           ":status",
		Description:    "Show tier, model and storage details",
		Handler:        handleStatus,
		RequiresUnlock: true,
	})

	r.Register(&Command{
		Name:        ":lock",
		Description: "Lock the session",
		Handler:     handleLock,
	})

	r.Register(&Command{
		Name:        ":quit",
		Aliases:     []string{":q", ":exit"},
		Description: "Exit RK AI",
		Handler:     handleQuit,
	})
}
