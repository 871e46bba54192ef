package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/config"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
	"github.com/nikolamrkic91-arch/ecutool/sim"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

func newSimulateCmd() *cobra.Command {
	var listen string
	var vin string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a local gateway simulator",
		Long: `Run an in-process diagnostic gateway that simulates the ECUs of the
vehicle profile. Useful for trying out coding flows without a car on
the bench.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			log := newLogger()

			gw := sim.NewGateway(0x00A4, seedkey.B48{})
			gw.Log = log
			for _, e := range simulatedECUs(profile, vin) {
				gw.AddECU(e)
			}

			addr, err := gw.Start(listen)
			if err != nil {
				return err
			}
			defer gw.Stop()
			fmt.Fprintf(os.Stdout, "gateway listening on %s\n", addr)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			log.Info().Msg("shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:13400", "address to listen on")
	cmd.Flags().StringVar(&vin, "vin", "WBA3A5C5XFP123456", "VIN the simulated DME reports")
	return cmd
}

// simulatedECUs builds one simulated ECU per profile address. Parameters
// named by the profile's modifications start at their default values and
// require a coding unlock to change.
func simulatedECUs(profile *config.Profile, vin string) []*sim.ECU {
	byAddr := make(map[uint16]*sim.ECU)
	for _, addr := range profile.ECUAddresses {
		byAddr[addr] = &sim.ECU{
			Address: addr,
			Params:  make(map[uint16][]byte),
			Secured: make(map[uint16]bool),
		}
	}
	for _, mod := range profile.Modifications {
		addr, err := profile.ECUAddress(mod.ECU)
		if err != nil {
			continue
		}
		for _, param := range mod.Parameters {
			byAddr[addr].Params[param.DID] = []byte(param.Default)
			byAddr[addr].Secured[param.DID] = true
		}
	}
	if dme, err := profile.ECUAddress("DME"); err == nil {
		byAddr[dme].Params[uds.DIDVIN] = []byte(vin)
	}
	ecus := make([]*sim.ECU, 0, len(byAddr))
	for _, e := range byAddr {
		ecus = append(ecus, e)
	}
	return ecus
}
