// Command podctl is the pod's supervisory controller process. It wires
// together the sensor adapters, the mode machine, the actuator
// projector, the command/telemetry facade, and the logging collaborator,
// then runs the control loop until Shutdown or a terminating signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v2"

	"github.com/openloop/podcore/cmdserver"
	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/control"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/imu"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/selftest"
	"github.com/openloop/podcore/sensor"
	"github.com/openloop/podcore/sensor/fake"
)

const banner = `
   ___                 _
  / _ \ _ __   ___ _ _ | |    ___   ___  _ __
 | | | | '_ \ / _ \ '_ \| |   / _ \ / _ \| '_ \
 | |_| | |_) |  __/ | | | |__| (_) | (_) | |_) |
  \___/| .__/ \___|_| |_|_____\___/ \___/| .__/
       |_|                               |_|
`

// bootEvent is posted by the logging and command threads once they have
// either come up or irrecoverably failed.
type bootEvent struct {
	name string
	err  error
}

func main() {
	os.Exit(run())
}

func run() int {
	skipBootWait := flag.Bool("r", false, "skip boot synchronization, start directly in Ready-for-test mode")
	runSelfTest := flag.Bool("t", false, "run self-tests then exit")
	imuPath := flag.String("i", "", "IMU serial device path; '-' disables the IMU")
	configPath := flag.String("c", "", "path to a YAML configuration override file")
	dumpConfig := flag.Bool("dump-config", false, "print the effective configuration as YAML and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		return 1
	}

	if *dumpConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to marshal configuration:", err)
			return 1
		}
		os.Stdout.Write(out)
		return 0
	}

	if *runSelfTest {
		if err := selftest.Run(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "selftest failed:", err)
			return 1
		}
		fmt.Println("selftest passed")
		return 0
	}

	var sink *logsink.Sink
	if cfg.LogSinkAddr != "" {
		sink = logsink.NewSink(cfg.LogSinkAddr)
	}
	logger := logsink.New(os.Stderr, sink)

	fmt.Print(banner)
	logger.Info("pod controller starting up")

	raiseThreadPriority(logger)

	pins := podstate.PinMap{
		SkatePins:      cfg.SkatePins,
		WheelBrakePins: cfg.WheelBrakePins,
		EBrakePins:     cfg.EBrakePins,
	}
	st := podstate.New(cfg.NSkateSolenoids, cfg.NWheelSolenoids, cfg.NEBrakeSolenoids, pins)

	writer := gpio.NewSysfs()
	if err := setupPins(writer, pins); err != nil {
		logger.Fatalf("GPIO setup failed: %v", err)
		return 1
	}

	logReady := make(chan bootEvent, 1)
	cmdReady := make(chan bootEvent, 1)

	go connectLogging(sink, logReady)
	srv := cmdserver.New(st, cfg, writer, logger)
	httpSrv := &http.Server{Addr: cfg.CommandAddr, Handler: srv.Router()}
	go connectCommand(httpSrv, cfg.CommandAddr, cmdReady)

	if !*skipBootWait {
		if err := waitForBoot(st, logger, logReady, cmdReady); err != nil {
			logger.Fatalf("boot failed: %v", err)
			return 1
		}
	}

	imuReader, closeIMU := setupIMU(*imuPath, cfg, logger)
	if closeIMU != nil {
		defer closeIMU()
	}

	// TODO: replace the skate/lateral/braking fakes with the ADC-backed
	// readers once that board's driver lands; only the IMU has a real
	// transport today.
	loop := control.New(
		st, cfg, logger,
		imuReader,
		fake.NewSkate(4),
		&fake.Lateral{},
		fake.NewBraking(cfg.NWheelSolenoids, cfg.NEBrakeSolenoids),
		writer,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignals(st, logger, cancel)

	if *skipBootWait {
		st.SetReady(true)
	}

	// The control loop owns this OS thread for its lifetime, so the
	// priority hint above applies to the loop and not a migrated
	// goroutine.
	runtime.LockOSThread()
	finalMode := loop.Run(ctx)
	logger.Infof("control loop exited in mode %s", finalMode)

	_ = httpSrv.Close()
	if finalMode == podstate.Shutdown {
		return 1
	}
	return 2
}

// setupPins enables and configures every solenoid GPIO once at boot.
// A failure aborts boot.
func setupPins(w gpio.Writer, pins podstate.PinMap) error {
	all := append(append(append([]int{}, pins.WheelBrakePins...), pins.EBrakePins...), pins.SkatePins...)
	for _, pin := range all {
		if err := w.Enable(pin); err != nil {
			return fmt.Errorf("enable gpio %d: %w", pin, err)
		}
		if err := w.SetDirection(pin, gpio.Out); err != nil {
			return fmt.Errorf("set direction gpio %d: %w", pin, err)
		}
	}
	return nil
}

// connectLogging posts a bootEvent after attempting a boot handshake with
// the remote log sink (if any). A controller with no configured sink is
// trivially connected. Forward swallows errors, so the event never
// carries an error, even when the sink is unreachable.
func connectLogging(sink *logsink.Sink, ready chan<- bootEvent) {
	if sink == nil {
		ready <- bootEvent{name: "logging"}
		return
	}
	sink.Forward("boot handshake")
	ready <- bootEvent{name: "logging"}
}

// connectCommand posts a bootEvent once the command/telemetry HTTP
// facade is bound and listening.
func connectCommand(srv *http.Server, addr string, ready chan<- bootEvent) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ready <- bootEvent{name: "command", err: err}
		return
	}
	ready <- bootEvent{name: "command"}
	_ = srv.Serve(ln)
}

// waitForBoot blocks until both the logging and command threads report
// in, showing a spinner in the meantime. If either reports while mode
// has already left Boot (e.g. a signal requested shutdown mid-wait), the
// boot is aborted.
func waitForBoot(st *podstate.PodState, logger *logsink.Logger, logReady, cmdReady <-chan bootEvent) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " waiting for logging and command threads",
		SuffixAutoColon: true,
	})
	if err == nil {
		_ = spinner.Start()
		defer func() { _ = spinner.Stop() }()
	}

	remaining := 2
	for remaining > 0 {
		select {
		case ev := <-logReady:
			if err := checkBootEvent(st, ev); err != nil {
				return err
			}
			remaining--
		case ev := <-cmdReady:
			if err := checkBootEvent(st, ev); err != nil {
				return err
			}
			remaining--
		}
	}
	return nil
}

func checkBootEvent(st *podstate.PodState, ev bootEvent) error {
	if ev.err != nil {
		return fmt.Errorf("%s thread failed to come up: %w", ev.name, ev.err)
	}
	if st.Mode() != podstate.Boot {
		return fmt.Errorf("%s thread reported in after mode left Boot", ev.name)
	}
	return nil
}

// setupIMU builds the sense-phase IMU reader named by path. A literal
// "-" disables the IMU; an empty path (no -i flag) also disables it.
func setupIMU(path string, cfg config.Config, logger *logsink.Logger) (sensor.IMUReader, func() error) {
	if path == "" || path == "-" {
		logger.Info("IMU disabled")
		return nil, nil
	}
	logger.Infof("connecting to IMU at %s", path)
	r := imu.NewReader(path, cfg.IMUBaud)
	return r, r.Close
}

// registerSignals maps POSIX signals onto the mode machine:
// SIGINT/SIGTERM/SIGHUP request Emergency once (letting the mode machine
// drive Shutdown once it is safe); a second signal of any kind forces
// Shutdown immediately, as does the first one while the mode is Boot or
// Shutdown. SIGUSR1 is the unconditional panic signal.
func registerSignals(st *podstate.PodState, logger *logsink.Logger, cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	go func() {
		first := true
		for sig := range ch {
			if sig == syscall.SIGUSR1 {
				logger.Panic("podctl", "panic signal received")
			}
			logger.Warnf("received signal %s", sig)
			if first && st.Mode() != podstate.Boot && st.Mode() != podstate.Shutdown {
				st.SetMode(podstate.Emergency, "signal "+sig.String()+" received")
				first = false
				continue
			}
			st.SetMode(podstate.Shutdown, "signal "+sig.String()+" received a second time")
			cancel()
			return
		}
	}()
}

// raiseThreadPriority is a best-effort nice(2) call; failures (e.g. no
// CAP_SYS_NICE) are logged and otherwise ignored. Real-time scheduling
// is a deployment nicety, not a correctness requirement.
func raiseThreadPriority(logger *logsink.Logger) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -10); err != nil {
		logger.Warnf("could not raise scheduling priority: %v", err)
	}
}

func init() {
	log.SetFlags(0)
}
