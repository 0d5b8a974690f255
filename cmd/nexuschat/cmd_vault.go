package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/nexuschat/internal/vault"
)

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultShowCmd, vaultSetCmd)
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage stored credentials and voice preferences",
}

var vaultShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the vault record (keys masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		v := vault.Open(cfg.DataDir, vault.Fallbacks{
			OpenRouterKey: cfg.Gateway.APIKey,
			SerperKey:     cfg.Serper.APIKey,
			TavilyKey:     cfg.Tavily.APIKey,
		})
		if err := unlockVault(v); err != nil {
			return err
		}
		defer v.Lock()

		creds := v.Credentials()
		fmt.Printf("openrouter_key = %s\n", maskKey(creds.OpenRouterKey))
		fmt.Printf("serper_key     = %s\n", maskKey(creds.SerperKey))
		fmt.Printf("tavily_key     = %s\n", maskKey(creds.TavilyKey))
		fmt.Printf("selected_model = %s\n", creds.SelectedModel)
		fmt.Printf("research_mode  = %t\n", creds.ResearchMode)
		fmt.Printf("voice_name     = %s\n", creds.VoiceName)
		fmt.Printf("pitch          = %g\n", creds.Pitch)
		fmt.Printf("rate           = %g\n", creds.Rate)
		return nil
	},
}

var vaultSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a vault field",
	Long: `Set a vault field. Fields:
  openrouter_key, serper_key, tavily_key, selected_model,
  research_mode (true/false), voice_name, pitch, rate`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		v := vault.Open(cfg.DataDir, vault.Fallbacks{
			OpenRouterKey: cfg.Gateway.APIKey,
			SerperKey:     cfg.Serper.APIKey,
			TavilyKey:     cfg.Tavily.APIKey,
		})
		if err := unlockVault(v); err != nil {
			return err
		}
		defer v.Lock()

		field, value := args[0], args[1]
		var parseErr error
		err := v.Update(func(c *vault.Credentials) {
			switch field {
			case "openrouter_key":
				c.OpenRouterKey = value
			case "serper_key":
				c.SerperKey = value
			case "tavily_key":
				c.TavilyKey = value
			case "selected_model":
				c.SelectedModel = value
			case "research_mode":
				b, err := strconv.ParseBool(value)
				if err != nil {
					parseErr = fmt.Errorf("research_mode must be true or false")
					return
				}
				c.ResearchMode = b
			case "voice_name":
				c.VoiceName = value
			case "pitch":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					parseErr = fmt.Errorf("pitch must be a number")
					return
				}
				c.Pitch = f
			case "rate":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					parseErr = fmt.Errorf("rate must be a number")
					return
				}
				c.Rate = f
			default:
				parseErr = fmt.Errorf("unknown vault field: %s", field)
			}
		})
		if parseErr != nil {
			return parseErr
		}
		if err != nil {
			return err
		}

		display := value
		if strings.HasSuffix(field, "_key") {
			display = "***"
		}
		fmt.Printf("Set %s = %s\n", field, display)
		return nil
	},
}

// unlockVault prompts for the passphrase on stdin, discarding mismatched
// attempts and re-asking until the vault unlocks or input ends.
func unlockVault(v *vault.Vault) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Passphrase: ")
		if !scanner.Scan() {
			return fmt.Errorf("no passphrase entered")
		}
		if v.Unlock(strings.TrimSpace(scanner.Text())) {
			return nil
		}
		fmt.Println("Passphrase mismatch.")
	}
}

func maskKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 4 {
		return "***" + key
	}
	return "***" + key[len(key)-4:]
}
