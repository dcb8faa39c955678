package main

import (
	"fmt"
	"strconv"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/SridarDhandapani/go-onvif/api"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var (
	movePan  float64
	moveTilt float64
	moveZoom float64
)

var ptzCmd = &cobra.Command{
	Use:   "ptz <operation>",
	Short: "Send one PTZ operation, e.g. ContinuousMoveLeft, Stop or RelativeMoveIn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := onvif.ParseOperation(args[0])
		if err != nil {
			return errors.Trace(err)
		}
		_, err = oneShot(cmd.Context(), api.NewCameraState(logger, "", ""), func(s *onvif.Session) error {
			if !s.SupportsPTZ() {
				return errors.NotSupportedf("PTZ on this camera")
			}
			s.SendPTZRequest(op)
			return nil
		})
		return err
	},
}

var ptzMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move to an absolute position given as percentages",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := oneShot(cmd.Context(), api.NewCameraState(logger, "", ""), func(s *onvif.Session) error {
			if !s.SupportsPTZ() {
				return errors.NotSupportedf("PTZ on this camera")
			}
			flags := cmd.Flags()
			if flags.Changed("pan") {
				s.SetAbsolutePan(movePan)
			}
			if flags.Changed("tilt") {
				s.SetAbsoluteTilt(moveTilt)
			}
			if flags.Changed("zoom") {
				s.SetAbsoluteZoom(moveZoom)
			}
			s.AbsoluteMove()
			return nil
		})
		return err
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset <index>",
	Short: "Go to a PTZ preset, numbered from 1",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 1 {
			return errors.NotValidf("preset index %q", args[0])
		}
		state := api.NewCameraState(logger, "", "")
		_, err = oneShot(cmd.Context(), state, func(s *onvif.Session) error {
			presets := s.Status().Presets
			if index > len(presets) {
				return errors.NotFoundf("preset %d, camera reported %d presets", index, len(presets))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "going to preset %d (%s)\n", index, presets[index-1].Name)
			s.GotoPreset(index)
			return nil
		})
		return err
	},
}

func init() {
	ptzMoveCmd.Flags().Float64Var(&movePan, "pan", 0, "pan, 0-100")
	ptzMoveCmd.Flags().Float64Var(&moveTilt, "tilt", 0, "tilt, 0-100")
	ptzMoveCmd.Flags().Float64Var(&moveZoom, "zoom", 0, "zoom, 0-100")
	ptzCmd.AddCommand(ptzMoveCmd)
}
