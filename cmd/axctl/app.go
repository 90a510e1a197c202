package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/trunnion/axctl/pkg/vapix"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Inspect the camera's application platform",
}

var appInfoCmd = &cobra.Command{
	Use:   "info <camera-url>",
	Short: "Show application platform info",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppInfo,
}

var appListCmd = &cobra.Command{
	Use:   "list <camera-url>",
	Short: "List installed applications",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppList,
}

func init() {
	appCmd.AddCommand(appInfoCmd)
	appCmd.AddCommand(appListCmd)
}

func runAppInfo(cmd *cobra.Command, args []string) error {
	apps, err := applicationsFor(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	info, err := apps.Info(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching application platform info: %w", err)
	}

	fmt.Printf("Architecture: %s\n", info.Architecture)
	fmt.Printf("SOC:          %s\n", info.SOC)
	return nil
}

func runAppList(cmd *cobra.Command, args []string) error {
	apps, err := applicationsFor(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	list, err := apps.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing applications: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No applications installed")
		return nil
	}

	fmt.Printf("%-30s %-12s %s\n", "NAME", "VERSION", "STATUS")
	for _, app := range list {
		fmt.Printf("%-30s %-12s %s\n", app.Name, app.Version, app.Status)
	}
	return nil
}

func applicationsFor(ctx context.Context, rawURL string) (*vapix.Applications, error) {
	cameraURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid camera URL %q: %w", rawURL, err)
	}

	device := vapix.New(cameraURL)
	apps, err := device.Applications(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking application platform support: %w", err)
	}
	return apps, nil
}
