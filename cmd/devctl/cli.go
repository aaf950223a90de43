package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"opcalcd/internal/common/fsutil"
	"opcalcd/internal/extproc"
	"opcalcd/pkg/types"
)

// buildRootCmd constructs the devctl command tree: operator utilities for
// the accelerator host that work with or without a running daemon.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devctl",
		Short:         "Operator utilities for the shared accelerator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var deviceID int
	var resetTool string
	resetCmd := &cobra.Command{
		Use:     "reset",
		Short:   "Hard-reset the accelerator via the vendor CLI",
		Example: "  devctl reset --device-id 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := extproc.ResetDevice(cmd.Context(), resetTool, deviceID)
			if !res.Success {
				return fmt.Errorf("%s", res.Error)
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	resetCmd.Flags().IntVar(&deviceID, "device-id", 0, "Device id to reset")
	resetCmd.Flags().StringVar(&resetTool, "reset-tool", "tt-smi", "Vendor reset CLI")

	var sdkDir string
	revisionCmd := &cobra.Command{
		Use:     "revision",
		Short:   "Show the accelerator SDK checkout revision",
		Example: "  devctl revision --sdk-dir ~/tt-metal",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := fsutil.ExpandHome(sdkDir)
			if err != nil {
				return err
			}
			if dir != "" && !fsutil.PathExists(dir) {
				return fmt.Errorf("sdk dir %s does not exist", dir)
			}
			info, err := extproc.GitInfo(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) %s — %s\n", info.ShortHash, info.FullHash, info.TimeAgo, info.Message)
			return nil
		},
	}
	revisionCmd.Flags().StringVar(&sdkDir, "sdk-dir", "", "SDK checkout directory")

	var baseURL string
	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Probe a running opcalcd daemon",
		Example: "  devctl status --url http://localhost:8080",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			var ds types.DeviceStatusResponse
			if err := getJSON(ctx, baseURL+"/api/device/status", &ds); err != nil {
				return err
			}
			fmt.Printf("available=%v in_use=%v total=%d waiting=%d max_wait=%.3fs\n",
				ds.Available, ds.InUse,
				ds.QueueStats.TotalRequests, ds.QueueStats.CurrentlyWaiting, ds.QueueStats.MaxWaitSeconds)
			return nil
		},
	}
	statusCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Daemon base URL")

	root.AddCommand(resetCmd, revisionCmd, statusCmd)
	return root
}

func getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
