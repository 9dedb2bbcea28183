package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/config"
	"github.com/signalsfoundry/surface-sampler/internal/host"
	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/observability"
	"github.com/signalsfoundry/surface-sampler/internal/persist"
	"github.com/signalsfoundry/surface-sampler/internal/remote"
	"github.com/signalsfoundry/surface-sampler/internal/scheduler"
	"github.com/signalsfoundry/surface-sampler/kb"
	"github.com/signalsfoundry/surface-sampler/model"
	"github.com/signalsfoundry/surface-sampler/timectrl"
)

// ISS sample TLE; the rendezvous scenario puts both vessels on it.
const (
	tleLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	tleLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

const (
	saveName      = "sampler"
	demoTransform = "sampleTransform"
	demoAnimation = "deploy"
)

// Options are the command-line settings of one simulator run.
type Options struct {
	ConfigPath  string
	Duration    time.Duration
	Tick        time.Duration
	Accelerated bool
	Warp        float64
	Scenario    string // surface | rendezvous
	Action      string // transmit | analyze | keep | discard
	SaveDir     string
	TextSave    bool
	Resume      bool
	// Manual leaves deploying and result handling to remote operators.
	Manual bool
}

func main() {
	var opts Options
	flag.StringVar(&opts.ConfigPath, "config", "", "instrument YAML config; defaults apply when empty")
	flag.DurationVar(&opts.Duration, "duration", 30*time.Second, "total simulation duration")
	flag.DurationVar(&opts.Tick, "tick", 250*time.Millisecond, "tick interval")
	flag.BoolVar(&opts.Accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.Float64Var(&opts.Warp, "warp", 1, "time-warp factor")
	flag.StringVar(&opts.Scenario, "scenario", "surface", "surface or rendezvous")
	flag.StringVar(&opts.Action, "action", "transmit", "what to do with the result: transmit, analyze, keep or discard")
	flag.StringVar(&opts.SaveDir, "save-dir", "", "directory for the instrument save file; disabled when empty")
	flag.BoolVar(&opts.TextSave, "text-save", false, "write the save file in protobuf text format")
	flag.BoolVar(&opts.Resume, "resume", false, "restore the instrument from the save file before running")
	flag.BoolVar(&opts.Manual, "manual", false, "leave deploying and result handling to remote operators")
	flag.Parse()

	rt, err := config.LoadRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: rt.LogLevel, Format: rt.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, rt, log, os.Stdout); err != nil {
		log.Error(ctx, "simulator failed", logging.Err(err))
		os.Exit(1)
	}
}

// run executes one simulation. It returns when the configured duration
// has elapsed or ctx is cancelled.
func run(ctx context.Context, opts Options, rt config.Runtime, log logging.Logger, out io.Writer) error {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load instrument config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Probe.Transform == "" {
		cfg.Probe = config.ProbeConfig{Transform: demoTransform, Distance: 2.5}
	}
	if cfg.AnimationCue == "" {
		cfg.AnimationCue = demoAnimation
	}

	tracingCfg := observability.TracingConfigFromRuntime(rt)
	tracingCfg.Output = out
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSamplerCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	knowledge, err := seedKnowledge(cfg)
	if err != nil {
		return err
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	tc := timectrl.NewTimeController(start, opts.Tick, mode)
	tc.SetWarp(opts.Warp)
	sched := scheduler.NewEventScheduler(tc)

	sc, err := buildScenario(opts.Scenario, tc)
	if err != nil {
		return err
	}
	vessel := sc.vessel
	vessel.AddTransmitter(host.NewAntenna("relay-dish", 2, knowledge, log))
	vessel.AddTransmitter(host.NewAntenna("direct-antenna", 1, knowledge, log))
	vessel.AddLab(host.NewLab(host.LabConfig{
		Name:     "mobile-lab",
		Cost:     1,
		Duration: 10 * time.Second,
		Share:    0.5,
	}, sched, knowledge, log))

	console := host.NewConsole(out, true)
	sampler, err := instrument.New(cfg, instrument.Host{
		Part: &host.Mount{
			ID:            1,
			TransformName: cfg.Probe.Transform,
			Forward:       core.Vec3{Z: -1},
			Scale:         1,
		},
		Vehicle:     vessel,
		World:       sc.world,
		Scheduler:   sched,
		Experiments: knowledge,
		Subjects:    knowledge,
	},
		instrument.WithLogger(log),
		instrument.WithMetricsRecorder(collector),
		instrument.WithBiomeMap(knowledge),
		instrument.WithAnimator(host.NewAnimations(tc, map[string]time.Duration{cfg.AnimationCue: 3 * time.Second})),
		instrument.WithAudioCue(host.NewSound(tc, time.Second)),
		instrument.WithTargetTracker(sc.target),
		instrument.WithPresenter(console),
		instrument.WithMessenger(console),
		instrument.WithConfirmer(console),
		instrument.WithObserver(console),
	)
	if err != nil {
		return fmt.Errorf("build instrument: %w", err)
	}
	defer sampler.Close()

	unsubscribe := knowledge.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventScienceSubmitted {
			console.ScienceCredited(ev.Subject, ev.Amount)
		}
	})
	defer unsubscribe()

	store, err := openStore(opts)
	if err != nil {
		return err
	}
	if store != nil && opts.Resume {
		if err := restore(store, sampler); err != nil {
			return err
		}
	}

	var lis net.Listener
	if rt.GRPCAddr != "" {
		lis, err = net.Listen("tcp", rt.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen for gRPC on %s: %w", rt.GRPCAddr, err)
		}
	}

	// servers owns the metrics and operator listeners; it is drained once
	// the simulation ends.
	var servers errgroup.Group
	metricsSrv := serveMetrics(&servers, rt.MetricsAddr, collector, log)

	var grpcSrv *grpc.Server
	if lis != nil {
		grpcSrv = remote.NewGRPCServer(sampler, log, collector)
		log.Info(ctx, "starting operator gRPC server", logging.String("addr", rt.GRPCAddr))
		servers.Go(func() error {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
	}

	driver := &operator{sampler: sampler, console: console, action: opts.Action, log: log}
	tc.AddListener(func(now time.Time) {
		sc.follow()
		sampler.Tick(now, tc.Warp())
		sched.RunDue()
		collector.SetScheduledTimers(sched.Len())
		if !opts.Manual {
			driver.step(ctx)
		}
	})

	log.Info(ctx, "starting simulation",
		logging.String("scenario", opts.Scenario),
		logging.Duration("duration", opts.Duration),
		logging.Duration("tick", opts.Tick),
		logging.String("mode", mode.String()),
	)
	select {
	case <-tc.Start(opts.Duration):
	case <-ctx.Done():
	}

	st := sampler.Status()
	fmt.Fprintf(out, "Simulation complete: state=%s records=%d\n", st.State, st.Records)

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := servers.Wait(); err != nil {
		return err
	}

	if store != nil {
		root := persist.NewNode("MODULE")
		sampler.Save(root)
		if err := store.Save(saveName, root); err != nil {
			return fmt.Errorf("save instrument: %w", err)
		}
		log.Info(ctx, "instrument saved", logging.String("dir", opts.SaveDir))
	}
	return nil
}

// operator plays the user: it deploys once the instrument offers it and
// answers the first result page with the configured action.
type operator struct {
	sampler *instrument.Sampler
	console *host.Console
	action  string
	log     logging.Logger

	deployed bool
	answered bool
}

func (o *operator) step(ctx context.Context) {
	if !o.deployed {
		if !o.sampler.Actions().Deploy {
			return
		}
		o.deployed = true
		if err := o.sampler.Deploy(ctx); err != nil {
			o.log.Warn(ctx, "deploy failed", logging.Err(err))
		}
		return
	}
	if o.answered || o.sampler.RecordCount() == 0 {
		return
	}
	o.answered = true
	if err := o.console.Choose(o.action); err != nil {
		o.log.Warn(ctx, "result action failed", logging.String("action", o.action), logging.Err(err))
	}
}

// seedKnowledge registers the experiments named in cfg and the demo biomes.
func seedKnowledge(cfg *config.Instrument) (*kb.KnowledgeBase, error) {
	knowledge := kb.NewKnowledgeBase()
	experiments := []*model.ExperimentDefinition{
		{
			ID:            cfg.Experiments.Surface,
			Title:         "Surface Sample",
			BaseValue:     10,
			DataScale:     1,
			ScienceCap:    30,
			SituationMask: model.SrfLanded | model.SrfSplashed,
			BiomeMask:     model.SrfLanded | model.SrfSplashed,
		},
		{
			ID:            cfg.Experiments.Asteroid,
			Title:         "Asteroid Sample",
			BaseValue:     25,
			DataScale:     1,
			ScienceCap:    75,
			SituationMask: model.SrfLanded | model.SrfSplashed | model.FlyingLow | model.FlyingHigh | model.InSpaceLow | model.InSpaceHigh,
		},
	}
	for _, exp := range experiments {
		if err := knowledge.AddExperiment(exp); err != nil {
			return nil, fmt.Errorf("register experiment %q: %w", exp.ID, err)
		}
	}
	knowledge.AddBiome("Mun", "Northern Basin", 0, 90, -180, 180)
	knowledge.AddBiome("Mun", "Midlands", -90, 0, -180, 180)
	return knowledge, nil
}

type scenario struct {
	world  *core.Scene
	vessel *host.Vessel
	target *host.OrbitalTarget
	// riders maps collider ids to their offset from the target vessel.
	riders map[string]core.Vec3
}

// follow moves colliders carried by the target to its current position.
func (sc *scenario) follow() {
	if len(sc.riders) == 0 {
		return
	}
	origin := sc.target.Position()
	for id, offset := range sc.riders {
		sc.world.Move(id, origin.Add(offset))
	}
}

// buildScenario returns the world, vessel and target for a named scenario.
// The surface scenario lands on the Mun with terrain under the probe; the
// rendezvous scenario parks an asteroid-carrying vessel next to ours in
// orbit.
func buildScenario(name string, clock timectrl.SimClock) (*scenario, error) {
	scene := core.NewScene()
	vessel := host.NewVessel("Mun", model.BodyThresholds{FlyingHigh: 18000, SpaceHigh: 60000})
	target := host.NewOrbitalTarget(clock, host.NewTrack(tleLine1, tleLine2), host.NewTrack(tleLine1, tleLine2))
	sc := &scenario{world: scene, vessel: vessel, target: target, riders: map[string]core.Vec3{}}

	switch name {
	case "surface":
		vessel.SetCoordinates(-12.5, 40, "")
		scene.Put("mun", core.SphereCollider{
			Center: core.Vec3{Z: -201},
			Radius: 200,
			Layer:  core.LayerLocalScenery,
			Node:   &core.Node{Name: "Mun"},
		})
		target.SetTargeted(false)
	case "rendezvous":
		asteroid := model.ForeignBody{PartName: "PotatoRoid", Title: "Class A Asteroid", FlightID: 7}
		vessel.SetSituation(model.VehicleOrbiting, 45000)
		target.Carry(asteroid, core.Vec3{Z: -3})
		sc.riders["asteroid"] = core.Vec3{Z: -3}
		scene.Put("asteroid", core.SphereCollider{
			Center: core.Vec3{Z: -3},
			Radius: 1.5,
			Layer:  core.LayerDefault,
			Node:   &core.Node{Name: "PotatoRoid"},
			Body:   &core.AttachedBody{Name: "PotatoRoid", ForeignBody: &asteroid},
		})
	default:
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return sc, nil
}

func openStore(opts Options) (*persist.FileStore, error) {
	if opts.SaveDir == "" {
		return nil, nil
	}
	enc := persist.Binary
	if opts.TextSave {
		enc = persist.Text
	}
	store, err := persist.NewFileStore(opts.SaveDir, enc)
	if err != nil {
		return nil, fmt.Errorf("open save store: %w", err)
	}
	return store, nil
}

func restore(store *persist.FileStore, sampler *instrument.Sampler) error {
	root, err := store.Load(saveName)
	if errors.Is(err, persist.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read save: %w", err)
	}
	if err := sampler.Load(root); err != nil {
		return fmt.Errorf("restore instrument: %w", err)
	}
	return nil
}

func serveMetrics(g *errgroup.Group, addr string, collector *observability.SamplerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
