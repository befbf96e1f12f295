package imu

import (
	"context"
	"time"

	"imucode-go/services/imu/internal/platform"
)

// simIntPin is the simulated INT line when the config leaves it unset.
const simIntPin = 21

// Open builds a Service on the platform's default SPI and GPIO factories,
// or on the simulator when cfg.Simulate is set. The simulator feeds frames
// until ctx ends.
func Open(ctx context.Context, cfg Config) (*Service, error) {
	spis, pins := platform.DefaultSPIFactory(), platform.DefaultPinFactory()
	if cfg.Simulate {
		if cfg.IntPin < 0 {
			cfg.IntPin = simIntPin
		}
		sim := platform.NewSim(cfg.IntPin)
		if cfg.AccelODRHz > 0 {
			sim.Period = time.Duration(float32(time.Second) / cfg.AccelODRHz)
		}
		spis, pins = sim.SPIFactory(), sim.PinFactory()
		cfg.Bus = platform.SimBus
		cfg.CSPin = -1
		cfg.PeerPins = nil
		go sim.Run(ctx)
		println("[imu] simulator on", cfg.Bus, "int pin", cfg.IntPin)
	}

	s, err := Build(spis, pins, cfg)
	if err != nil {
		println("[imu] build failed:", err.Error())
		return nil, err
	}
	return s, nil
}

// Run opens the service, brings the sensor up with blob and streams
// batches to fn until ctx ends.
func Run(ctx context.Context, cfg Config, blob []byte, fn func(*Batch)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Bringup(blob); err != nil {
		return err
	}
	return s.Run(ctx, fn)
}
