package main

import (
	"encoding/json"
	"os"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/SridarDhandapani/go-onvif/api"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect once and print what the camera reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		state := api.NewCameraState(logger, "", "")
		s, err := oneShot(cmd.Context(), state, func(s *onvif.Session) error {
			s.RequestDeviceInformation()
			s.GetStatus()
			return nil
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return errors.Trace(enc.Encode(struct {
			Session onvif.Status `json:"session"`
			Camera  api.Snapshot `json:"camera"`
		}{s.Status(), state.Snapshot()}))
	},
}
