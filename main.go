package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"

	"fmreceiver/bus"
	"fmreceiver/config"
	"fmreceiver/display"
	"fmreceiver/radio"
)

// platform is what the receiver needs from a board: an i2c bus, GPIO
// writes for the reset sequence and the gobot adaptor lifecycle.
type platform interface {
	gobot.Connection
	i2c.Connector
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	app := cli.NewApp()
	app.Name = "fmreceiver"
	app.Usage = "control a Si4703 FM receiver"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML configuration file",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log every register transaction step",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "tune",
			Usage:     "tune to a frequency and keep playing",
			ArgsUsage: "<MHz>",
			Action:    tuneCmd,
		},
		{
			Name:      "seek",
			Usage:     "seek the next station and keep playing",
			ArgsUsage: "up|down",
			Action:    seekCmd,
		},
		{
			Name:  "status",
			Usage: "print the receiver status and station name",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "wait",
					Value: 3 * time.Second,
					Usage: "how long to collect RDS data",
				},
			},
			Action: statusCmd,
		},
		{
			Name:   "listen",
			Usage:  "play the configured station and show it on the display",
			Action: listenCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	config.Normalize(cfg)
	return cfg, nil
}

func newPlatform(cfg *config.Config) platform {
	if cfg.Platform == config.PlatformPeriph {
		return bus.NewPeriphAdaptor(cfg.Bus.Name, *cfg.Bus.Number)
	}
	return raspi.NewAdaptor()
}

func newReceiver(c *cli.Context, cfg *config.Config, adaptor platform) (*radio.Si4703Driver, error) {
	rcfg := config.ToRadio(cfg, c.GlobalBool("debug"), log.Printf, log.Printf)
	return radio.NewSi4703Driver(adaptor, rcfg, i2c.WithBus(*cfg.Bus.Number))
}

// session connects the platform, starts the receiver and runs fn. The
// receiver is powered down afterwards.
func session(c *cli.Context, fn func(ctx context.Context, rdio *radio.Si4703Driver) error) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	adaptor := newPlatform(cfg)
	rdio, err := newReceiver(c, cfg, adaptor)
	if err != nil {
		return err
	}

	if err = adaptor.Connect(); err != nil {
		return errors.Wrapf(err, "connecting %s", adaptor.Name())
	}
	defer func() {
		if ferr := adaptor.Finalize(); ferr != nil {
			err = multierror.Append(err, ferr)
		}
	}()

	if err = rdio.Start(); err != nil {
		return err
	}
	defer func() {
		if herr := rdio.Halt(); herr != nil {
			err = multierror.Append(err, herr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, rdio)
}

// play prints every RDS update until ctx is done.
func play(ctx context.Context, rdio *radio.Si4703Driver) error {
	if err := rdio.StartRDS(); err != nil {
		return err
	}
	log.Println("Playing, press Ctrl+C to stop")

	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-rdio.Updates():
			if snap.StationName != last {
				last = snap.StationName
				log.Printf("Station name: %q\n", last)
			}
		}
	}
}

func parseMHz(s string) (uint16, error) {
	mhz, err := strconv.ParseFloat(s, 64)
	if err != nil || mhz <= 0 || mhz > math.MaxUint16/100 {
		return 0, fmt.Errorf("invalid frequency %q, expected MHz such as 92.7", s)
	}
	return uint16(math.Round(mhz * 100)), nil
}

func tuneCmd(c *cli.Context) error {
	freq, err := parseMHz(c.Args().First())
	if err != nil {
		return err
	}

	return session(c, func(ctx context.Context, rdio *radio.Si4703Driver) error {
		res, err := rdio.TuneContext(ctx, freq)
		if err != nil {
			return err
		}
		log.Printf("Tuned: %s\n", res)
		return play(ctx, rdio)
	})
}

func seekCmd(c *cli.Context) error {
	var dir radio.Direction
	switch arg := c.Args().First(); arg {
	case "up":
		dir = radio.SeekUp
	case "down":
		dir = radio.SeekDown
	default:
		return fmt.Errorf("seek direction must be up or down, got %q", arg)
	}

	return session(c, func(ctx context.Context, rdio *radio.Si4703Driver) error {
		res, err := rdio.SeekContext(ctx, dir)
		if err != nil {
			return err
		}
		if res.BandLimitReached {
			log.Printf("No station found, stopped at the band limit: %s\n", res.TuningResult)
		} else {
			log.Printf("Found: %s\n", res.TuningResult)
		}
		return play(ctx, rdio)
	})
}

func statusCmd(c *cli.Context) error {
	wait := c.Duration("wait")

	return session(c, func(ctx context.Context, rdio *radio.Si4703Driver) error {
		info, err := rdio.DeviceInfo()
		if err != nil {
			return err
		}
		if err = rdio.StartRDS(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}

		res, err := rdio.Status()
		if err != nil {
			return err
		}
		snap, err := rdio.RDS()
		if err != nil {
			return err
		}

		fmt.Printf("Device:    %s\n", info)
		fmt.Printf("Tuned:     %s\n", res)
		fmt.Printf("Station:   %q\n", snap.StationName)
		fmt.Printf("PI:        0x%04X\n", snap.ProgramID)
		fmt.Printf("PTY:       %d\n", snap.ProgramType)
		fmt.Printf("TP/TA:     %t/%t\n", snap.TrafficProgram, snap.TrafficAnnouncement)
		fmt.Printf("RDS groups %d\n", snap.Groups)
		return nil
	})
}

func listenCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	adaptor := newPlatform(cfg)
	rdio, err := newReceiver(c, cfg, adaptor)
	if err != nil {
		return err
	}

	devices := []gobot.Device{rdio}
	var lcd *display.LCD1602Driver
	if cfg.Display.Enabled {
		lcd = display.NewLCD1602Driver(adaptor,
			i2c.WithBus(*cfg.Bus.Number),
			i2c.WithAddress(cfg.Display.Address),
		)
		devices = append(devices, lcd)
	}

	work := func() {
		if err := rdio.StartRDS(); err != nil {
			log.Fatalln(err)
		}

		gobot.Every(cfg.RefreshInterval(), func() {
			res, err := rdio.Status()
			if err != nil {
				log.Printf("Status failed: %v\n", err)
				return
			}
			name, err := rdio.StationName()
			if err != nil {
				log.Printf("RDS failed: %v\n", err)
				return
			}

			if lcd == nil {
				log.Printf("%s %q\n", res, name)
				return
			}
			if err = lcd.ShowStation(res, name); err != nil {
				log.Printf("Display failed: %v\n", err)
			}
		})
	}

	robot := gobot.NewRobot("FM Receiver",
		[]gobot.Connection{adaptor},
		devices,
		work,
	)

	return robot.Start()
}
