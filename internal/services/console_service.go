package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// consoleChannel is the Redis channel console output is fanned out on.
const consoleChannel = "gridverse:console:output"

// ConsoleCommandFunc runs one console command, emitting output lines through
// out as they are produced.
type ConsoleCommandFunc func(ctx context.Context, args []string, out func(line string))

// ConsoleCommand is one registered operator command.
type ConsoleCommand struct {
	Name string
	Help string
	Run  ConsoleCommandFunc
}

type consoleRelayMessage struct {
	InstanceID string `json:"instanceId"`
	Line       string `json:"line"`
}

// ConsoleService executes operator command lines against an explicit command
// table and streams the output to every attached listener. With Redis
// configured, output also crosses instances via pub/sub.
type ConsoleService struct {
	commands    map[string]*ConsoleCommand
	subscribers map[chan string]struct{}
	mu          sync.RWMutex
	redis       *RedisService // nil when Redis is not configured
	instanceID  string
}

// NewConsoleService creates a console with an empty command table.
// redisService may be nil.
func NewConsoleService(redisService *RedisService) *ConsoleService {
	s := &ConsoleService{
		commands:    make(map[string]*ConsoleCommand),
		subscribers: make(map[chan string]struct{}),
		redis:       redisService,
		instanceID:  uuid.New().String(),
	}
	s.Register(&ConsoleCommand{
		Name: "help",
		Help: "list available commands",
		Run: func(ctx context.Context, args []string, out func(string)) {
			for _, cmd := range s.Commands() {
				out(fmt.Sprintf("%-12s %s", cmd.Name, cmd.Help))
			}
		},
	})
	return s
}

// Register adds a command to the table. Last registration wins.
func (s *ConsoleService) Register(cmd *ConsoleCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[cmd.Name] = cmd
}

// Commands returns the registered commands sorted by name.
func (s *ConsoleService) Commands() []*ConsoleCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmds := make([]*ConsoleCommand, 0, len(s.commands))
	for _, cmd := range s.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Execute runs one command line and returns its output lines. Every line is
// also broadcast to attached listeners. An unknown command produces a normal
// output line, not an error; the console never fails a session for typos.
func (s *ConsoleService) Execute(ctx context.Context, line string) []string {
	fields := strings.Fields(line)
	var lines []string
	emit := func(text string) {
		lines = append(lines, text)
		s.broadcast(ctx, text)
	}

	if len(fields) == 0 {
		return nil
	}

	s.mu.RLock()
	cmd, exists := s.commands[fields[0]]
	s.mu.RUnlock()

	if !exists {
		emit(fmt.Sprintf("Unknown command: %s (try 'help')", fields[0]))
		return lines
	}

	log.Printf("🖥️  [CONSOLE] Executing: %s", line)
	cmd.Run(ctx, fields[1:], emit)
	return lines
}

// Subscribe attaches a listener to the console output stream. The returned
// cancel func must be called to detach.
func (s *ConsoleService) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// StartRelay bridges console output across instances over Redis. Messages
// published by this instance are skipped to avoid echo loops.
func (s *ConsoleService) StartRelay(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	pubsub := s.redis.Client().Subscribe(ctx, consoleChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("console relay subscribe failed: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var relay consoleRelayMessage
				if err := json.Unmarshal([]byte(msg.Payload), &relay); err != nil {
					log.Printf("⚠️ [CONSOLE] Bad relay payload: %v", err)
					continue
				}
				if relay.InstanceID == s.instanceID {
					continue
				}
				s.deliver(relay.Line)
			}
		}
	}()

	log.Printf("📡 [CONSOLE] Relay started (instance: %s)", s.instanceID)
	return nil
}

func (s *ConsoleService) broadcast(ctx context.Context, line string) {
	s.deliver(line)

	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(consoleRelayMessage{InstanceID: s.instanceID, Line: line})
	if err != nil {
		return
	}
	if err := s.redis.Client().Publish(ctx, consoleChannel, payload).Err(); err != nil {
		log.Printf("⚠️ [CONSOLE] Relay publish failed: %v", err)
	}
}

// deliver pushes a line to local listeners, dropping it for any listener
// whose buffer is full rather than blocking command execution.
func (s *ConsoleService) deliver(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}
