package main

import (
	"github.com/spf13/cobra"

	"radiomon/internal/api"
	"radiomon/internal/ipc"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"ls"},
		Short:   "List registered modems in registration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var devices []api.DeviceInfo
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Devices()
				if err != nil {
					return err
				}
				devices = resp.Devices
				return nil
			})
			if err != nil {
				return err
			}
			if asJSON {
				if devices == nil {
					devices = []api.DeviceInfo{}
				}
				return writeJSON(cmd, devices)
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output devices as JSON")
	return cmd
}
