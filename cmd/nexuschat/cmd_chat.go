package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/nexuschat/internal/orchestrator"
	"github.com/user/nexuschat/internal/research"
	"github.com/user/nexuschat/internal/router"
	"github.com/user/nexuschat/internal/state"
	"github.com/user/nexuschat/internal/types"
	"github.com/user/nexuschat/internal/vault"
	"github.com/user/nexuschat/internal/voice"
	"github.com/user/nexuschat/pkg/llm/gemini"
	"github.com/user/nexuschat/pkg/llm/openrouter"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	v := vault.Open(cfg.DataDir, vault.Fallbacks{
		OpenRouterKey: cfg.Gateway.APIKey,
		SerperKey:     cfg.Serper.APIKey,
		TavilyKey:     cfg.Tavily.APIKey,
	})
	sessions := state.NewSessionStore(cfg.DataDir)
	settings := state.NewSettingsStore(cfg.DataDir)

	gateway := openrouter.New(cfg.Gateway.BaseURL)
	direct := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.ThinkingBudget)
	rt := router.New(v, gateway, direct, cfg.Gemini.APIKey)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// The catalog improves token-budget warnings; the chat works without it.
	if models, err := gateway.ListModels(ctx); err != nil {
		slog.Warn("model catalog unavailable", "error", err)
	} else {
		rt.SetCatalog(models)
	}

	agg := research.New(v,
		research.NewSerperClient(""),
		research.NewTavilyClient(""),
		research.NewPageFetcher(),
	)

	// No recognition or synthesis engine ships with the terminal build; the
	// controller reports the capability as unavailable and the chat loop
	// stays text-only.
	vc := voice.NewController(nil, nil, slog.Default())

	orch := orchestrator.New(v, sessions, settings, agg, rt, vc, slog.Default())

	if !v.IsConfigured() && cfg.Gemini.APIKey == "" {
		fmt.Println("No provider credentials found. Set OPENROUTER_API_KEY or GEMINI_API_KEY,")
		fmt.Println("or store a key with: nexuschat vault set openrouter_key <key>")
	}

	fmt.Println("nexuschat ready. Type /help for commands, Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runSlashCommand(ctx, line, orch, sessions, settings, v); quit {
				break
			}
			continue
		}

		reply, err := orch.Send(ctx, line)
		if err != nil {
			if errors.Is(err, orchestrator.ErrTurnInFlight) {
				fmt.Println("Still working on the previous message.")
				continue
			}
			return err
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

// runSlashCommand handles one /command line and reports whether the REPL
// should exit.
func runSlashCommand(ctx context.Context, line string, orch *orchestrator.Orchestrator, sessions *state.SessionStore, settings *state.SettingsStore, v *vault.Vault) bool {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /new             start a fresh session
  /sessions        list sessions
  /switch <id>     switch to a session (id prefix is enough)
  /delete <id>     delete a session
  /voice           toggle speaking replies aloud
  /research        toggle web research context
  /quit            exit`)

	case "/new":
		orch.NewSession()
		fmt.Println("Started a new session.")

	case "/sessions":
		list, err := sessions.List(ctx)
		if err != nil {
			fmt.Println("Error:", err)
			return false
		}
		if len(list) == 0 {
			fmt.Println("No sessions yet.")
			return false
		}
		active := orch.ActiveSession()
		for _, s := range list {
			marker := " "
			if s.ID == active {
				marker = "*"
			}
			fmt.Printf("%s %s  %-30s  %d turns  %s\n",
				marker, shortID(s.ID), s.Title, len(s.Turns),
				s.UpdatedAt.Format("2006-01-02 15:04"))
		}

	case "/switch":
		if len(rest) != 1 {
			fmt.Println("Usage: /switch <id>")
			return false
		}
		id, err := resolveSessionID(ctx, sessions, rest[0])
		if err != nil {
			fmt.Println("Error:", err)
			return false
		}
		if err := orch.SwitchSession(ctx, id); err != nil {
			fmt.Println("Error:", err)
			return false
		}
		fmt.Println("Switched to", shortID(id))

	case "/delete":
		if len(rest) != 1 {
			fmt.Println("Usage: /delete <id>")
			return false
		}
		id, err := resolveSessionID(ctx, sessions, rest[0])
		if err != nil {
			fmt.Println("Error:", err)
			return false
		}
		if err := orch.DeleteSession(ctx, id); err != nil {
			fmt.Println("Error:", err)
			return false
		}
		fmt.Println("Deleted", shortID(id))

	case "/voice":
		enabled := !settings.AutoVoice()
		if err := settings.SetAutoVoice(enabled); err != nil {
			fmt.Println("Error:", err)
			return false
		}
		fmt.Println("Auto voice:", onOff(enabled))

	case "/research":
		var enabled bool
		err := v.Update(func(c *vault.Credentials) {
			c.ResearchMode = !c.ResearchMode
			enabled = c.ResearchMode
		})
		if err != nil {
			fmt.Println("Error:", err)
			return false
		}
		fmt.Println("Research mode:", onOff(enabled))

	default:
		fmt.Println("Unknown command. Type /help.")
	}
	return false
}

// resolveSessionID matches a full id or a unique prefix against the store.
func resolveSessionID(ctx context.Context, sessions *state.SessionStore, prefix string) (types.SessionID, error) {
	list, err := sessions.List(ctx)
	if err != nil {
		return "", err
	}
	var matches []types.SessionID
	for _, s := range list {
		if s.ID == types.SessionID(prefix) {
			return s.ID, nil
		}
		if strings.HasPrefix(string(s.ID), prefix) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func shortID(id types.SessionID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
