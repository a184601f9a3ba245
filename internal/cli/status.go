package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/obiverse/dojo/pkg/hokage"
	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running dojo",
	Long:  `Query GET /status of a running dojo server and print its workers.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "server base URL (default from server.port)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	}

	status, err := fetchStatus(&http.Client{Timeout: 5 * time.Second}, addr)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", color.RedString("unreachable"))
		return err
	}

	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func fetchStatus(client *http.Client, addr string) (*hokage.Status, error) {
	resp, err := client.Get(addr + "/status")
	if err != nil {
		return nil, fmt.Errorf("failed to reach dojo at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dojo returned %d: %s", resp.StatusCode, body)
	}

	var status hokage.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return &status, nil
}

func printStatus(out io.Writer, status *hokage.Status) {
	fmt.Fprintf(out, "Status: %s\n", color.GreenString(status.Status))
	fmt.Fprintf(out, "Coordinator: %s\n", status.CoordinatorName)
	fmt.Fprintf(out, "Completed invocations: %d\n", status.CompletedCount)
	fmt.Fprintf(out, "Workers: %d\n", len(status.Workers))

	names := append([]string(nil), status.Workers...)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", color.CyanString(name))
	}
}
