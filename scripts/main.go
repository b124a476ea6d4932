package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/flexprice/tiersync/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "generate-apikey",
		Description: "Generate a new API key and its config entry",
		Run:         internal.GenerateNewAPIKey,
	},
	{
		Name:        "generate-token",
		Description: "Sign a session token with the configured auth secret",
		Run:         internal.GenerateSessionToken,
	},
	{
		Name:        "print-catalog",
		Description: "Print the plan identifier to tier catalog from config",
		Run:         internal.PrintCatalog,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		tenantID     string
		userID       string
		keyName      string
		operator     bool
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&tenantID, "tenant-id", "", "Tenant ID for operations")
	flag.StringVar(&userID, "user-id", "", "User ID for operations")
	flag.StringVar(&keyName, "name", "", "Name of the API key")
	flag.BoolVar(&operator, "operator", false, "Grant operator rights")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	// Set command-specific environment variables
	if tenantID != "" {
		os.Setenv("TENANT_ID", tenantID)
	}
	if userID != "" {
		os.Setenv("USER_ID", userID)
	}
	if keyName != "" {
		os.Setenv("KEY_NAME", keyName)
	}
	if operator {
		os.Setenv("OPERATOR", "true")
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
