package core

import (
	"errors"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for unregistered names
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one command; args excludes the command word
type CommandHandler func(args []string) error

// Command represents a registered text command
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument synopsis for HELP (e.g., "<steps>")
	Handler CommandHandler
}

// CommandRegistry holds all registered commands. Names match case-insensitively.
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	nameToID   map[string]uint16
	nextID     uint16
	dictionary string // One "NAME format" line per command, registration order
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
		nextID:   0,
	}
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(name)
	// Check if already registered
	if id, exists := r.nameToID[key]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	cmd := &Command{
		ID:      id,
		Name:    key,
		Format:  format,
		Handler: handler,
	}

	r.commands[id] = cmd
	r.nameToID[key] = id

	r.rebuildDictionary()

	return id
}

// Lookup retrieves a command by name
func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[strings.ToUpper(name)]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered under name
func (r *CommandRegistry) Dispatch(name string, args []string) error {
	cmd, ok := r.Lookup(name)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}

	return cmd.Handler(args)
}

// GetDictionary returns one "NAME format" line per command in registration order
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dictionary
}

// rebuildDictionary rebuilds the dictionary string
// Must be called with lock held
func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			if cmd.Format != "" {
				dict += cmd.Name + " " + cmd.Format + "\n"
			} else {
				dict += cmd.Name + "\n"
			}
		}
	}
	r.dictionary = dict
}
