package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var defaultURLs = map[string]string{
	"ollama":    "http://localhost:11434",
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com",
}

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Dojo Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()
	backend := cfg.Backends[cfg.DefaultBackend]

	// Backend
	fmt.Fprintln(w.out, "Inference backend:")
	for {
		provider, err := w.prompt("Provider (ollama/openai/anthropic)", "ollama")
		if err != nil {
			return nil, err
		}
		provider = strings.ToLower(provider)
		if err := validator.ValidateProvider(provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		backend.Provider = provider
		break
	}

	for {
		url, err := w.prompt("Backend URL", defaultURLs[backend.Provider])
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateURL(url); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		backend.URL = url
		break
	}

	if backend.Provider != "ollama" {
		for {
			key, err := w.prompt("API key", "")
			if err != nil {
				return nil, err
			}
			if key == "" {
				fmt.Fprintf(w.out, "Error: an API key is required for %s\n", backend.Provider)
				continue
			}
			backend.APIKey = key
			break
		}
	}

	model, err := w.prompt("Default model (empty uses each worker's model)", "")
	if err != nil {
		return nil, err
	}
	backend.Model = model

	for {
		raw, err := w.prompt("Concurrent calls the backend can serve", "1")
		if err != nil {
			return nil, err
		}
		capacity, err := strconv.Atoi(raw)
		if err == nil {
			err = validator.ValidateCapacity(capacity)
		}
		if err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		backend.Capacity = capacity
		break
	}
	cfg.Backends[cfg.DefaultBackend] = backend

	fmt.Fprintln(w.out)

	// Server
	fmt.Fprintln(w.out, "Server:")
	for {
		raw, err := w.prompt("Port", strconv.Itoa(cfg.Server.Port))
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(raw)
		if err == nil {
			err = validator.ValidatePort(port)
		}
		if err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Server.Port = port
		break
	}

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	level, err := w.prompt("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", label)
	}

	line, err := w.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
