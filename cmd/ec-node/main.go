// Command ec-node runs one Easy Connect onboarding node: a controller, a
// proxy agent or an enrollee.
//
// Nodes exchange radio frames and 1905 messages over a simulated UDP link.
// A controller advertises itself via mDNS and keeps onboarded peers in a
// SQLite registry; agents and enrollees can find their controller by
// browsing.
//
// Usage:
//
//	ec-node [flags]
//
// Flags:
//
//	-config string     YAML configuration file
//	-env string        .env file with EC_* overrides (default ".env")
//	-role string       Override the configured role
//	-interactive       Start the interactive shell
//	-upgrade           Become a proxy agent once onboarded (enrollee only)
//
// Examples:
//
//	# Controller with a registry and mDNS advertisement
//	ec-node -config controller.yaml
//
//	# Enrollee that upgrades to a proxy agent after onboarding
//	ec-node -role enrollee -upgrade -interactive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/meshonboard/ec-go/cmd/ec-node/interactive"
	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/config"
	"github.com/meshonboard/ec-go/pkg/discovery"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	eclog "github.com/meshonboard/ec-go/pkg/log"
	"github.com/meshonboard/ec-go/pkg/registry"
	"github.com/meshonboard/ec-go/pkg/simlink"
)

var (
	configFile   string
	envFile      string
	roleFlag     string
	interactMode bool
	upgrade      bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "YAML configuration file")
	flag.StringVar(&envFile, "env", ".env", ".env file with EC_* overrides")
	flag.StringVar(&roleFlag, "role", "", "Override the configured role: controller, agent, enrollee")
	flag.BoolVar(&interactMode, "interactive", false, "Start the interactive shell")
	flag.BoolVar(&upgrade, "upgrade", false, "Become a proxy agent once onboarded (enrollee only)")
}

// node bundles the running components.
type node struct {
	cfg     config.NodeConfig
	logger  *slog.Logger
	mgr     *easyconnect.Manager
	link    *simlink.Link
	store   *registry.Store
	adv     *discovery.MDNSAdvertiser
	own     *bootstrap.Data
	closers []io.Closer
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if roleFlag != "" {
		cfg.Role = roleFlag
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	log.Println("Easy Connect Node")
	log.Println("=================")
	log.Printf("Role: %s", cfg.Role)
	log.Printf("Link: %s", cfg.Link.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shell *interactive.Shell
	logOut := io.Writer(os.Stderr)
	if interactMode {
		shell, err = interactive.New()
		if err != nil {
			log.Fatalf("Failed to start shell: %v", err)
		}
		logOut = shell.Stderr()
		log.SetOutput(logOut)
	}

	n, err := start(ctx, cfg, logOut)
	if err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
	defer n.close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := n.link.Serve(ctx, n.mgr); err != nil && !errors.Is(err, context.Canceled) {
			n.logger.Error("link stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		_ = n.mgr.Run(ctx, cfg.TickInterval)
	}()

	n.discover(ctx)

	if shell != nil {
		shell.Attach(n.mgr, n.link, n.store, n.own)
		go shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	cancel()
	wg.Wait()
	log.Println("Goodbye!")
}

func start(ctx context.Context, cfg config.NodeConfig, logOut io.Writer) (*node, error) {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	n := &node{cfg: cfg, logger: logger}

	ec, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	ec.Logger = logger
	ec.ProtocolLogger, err = n.protocolLogger(level)
	if err != nil {
		return nil, err
	}

	mac, al, controllerAL := cfg.Addresses()
	linkCfg := simlink.Config{
		Listen:          cfg.Link.Listen,
		Peers:           cfg.Link.Peers,
		MAC:             mac,
		ALMAC:           al,
		ControllerALMAC: controllerAL,
		Logger:          logger,
	}

	if ec.Role == easyconnect.RoleController && cfg.RegistryPath != "" {
		store, err := registry.Open(cfg.RegistryPath, registry.WithLogger(logger))
		if err != nil {
			n.close()
			return nil, err
		}
		n.store = store
		n.closers = append(n.closers, store)
		linkCfg.CanOnboardAdditional = registry.NewAdmission(store, cfg.MaxDevices).CanOnboardAdditional
	}

	link, err := simlink.Listen(linkCfg)
	if err != nil {
		n.close()
		return nil, err
	}
	n.link = link
	n.closers = append(n.closers, link)

	mgr, err := easyconnect.New(ec, easyconnect.NewTransport(link))
	if err != nil {
		n.close()
		return nil, err
	}
	n.mgr = mgr
	mgr.OnEvent(n.handleEvent)
	if n.store != nil {
		mgr.OnEvent(registry.NewAdmission(n.store, cfg.MaxDevices).Observe)
	}

	switch ec.Role {
	case easyconnect.RoleController:
		if err := n.loadBootstraps(ctx); err != nil {
			n.close()
			return nil, err
		}
	case easyconnect.RoleEnrollee:
		if err := n.startEnrollee(); err != nil {
			n.close()
			return nil, err
		}
	}
	return n, nil
}

// loadBootstraps registers the configured and persisted bootstrap URIs.
func (n *node) loadBootstraps(ctx context.Context) error {
	var all []*bootstrap.Data
	for _, uri := range n.cfg.BootstrapURIs {
		b, err := bootstrap.ParseURI(uri)
		if err != nil {
			return fmt.Errorf("bootstrap URI %q: %w", uri, err)
		}
		all = append(all, b)
		if n.store != nil {
			if err := n.store.AddBootstrap(ctx, b); err != nil {
				return err
			}
		}
	}
	if n.store != nil {
		stored, err := n.store.Bootstraps(ctx)
		if err != nil {
			return err
		}
		all = append(all, stored...)
	}
	registered := 0
	for _, b := range all {
		if err := n.mgr.AddBootstrap(b); err != nil {
			n.logger.Warn("bootstrap rejected", "peer", b.PeerID(), "error", err)
			continue
		}
		registered++
	}
	log.Printf("Registered %d bootstrap(s)", registered)
	return nil
}

// startEnrollee loads or creates the bootstrap key and starts chirping.
func (n *node) startEnrollee() error {
	var (
		b   *bootstrap.Data
		err error
	)
	if n.cfg.BootstrapKey != "" {
		b, err = bootstrap.LoadKeyFile(n.cfg.BootstrapKey)
		if errors.Is(err, os.ErrNotExist) {
			if b, err = bootstrap.Generate(); err == nil {
				err = b.SaveKeyFile(n.cfg.BootstrapKey)
			}
		}
	} else {
		b, err = bootstrap.Generate()
	}
	if err != nil {
		return fmt.Errorf("bootstrap key: %w", err)
	}
	n.own = b

	log.Println("")
	log.Println("============================================")
	log.Printf("DPP URI: %s", b.URI())
	log.Printf("Peer ID: %s", b.PeerID())
	log.Println("============================================")
	log.Println("")

	if !n.mgr.StartEnrolleeOnboarding(false, b) {
		return errors.New("enrollee onboarding did not start")
	}
	return nil
}

// discover advertises a controller or looks one up for everybody else.
func (n *node) discover(ctx context.Context) {
	if !n.cfg.MDNS.Enabled {
		return
	}
	if n.mgr.Role() == easyconnect.RoleController {
		n.advertise(ctx)
		return
	}
	go n.findController(ctx)
}

func (n *node) controllerInfo() *discovery.ControllerInfo {
	_, al, _ := n.cfg.Addresses()
	info := &discovery.ControllerInfo{
		ALMAC:   al,
		Version: 2,
		GroupID: n.cfg.GroupID,
	}
	if c := n.mgr.Configurator(); c != nil {
		info.CSignHash = c.CSignKeyHash()
	}
	if n.store != nil {
		if count, err := n.store.Count(context.Background()); err == nil {
			info.DeviceCount = uint16(count)
		}
	}
	if addr, ok := n.link.Addr().(*net.UDPAddr); ok {
		info.Port = uint16(addr.Port)
	}
	return info
}

func (n *node) advertise(ctx context.Context) {
	acfg := discovery.DefaultAdvertiserConfig()
	acfg.Interface = n.cfg.MDNS.Interface
	acfg.Logger = n.logger
	adv, err := discovery.NewMDNSAdvertiser(acfg)
	if err != nil {
		n.logger.Error("mDNS advertiser", "error", err)
		return
	}
	if err := adv.AdvertiseController(ctx, n.controllerInfo()); err != nil {
		n.logger.Error("mDNS advertisement failed", "error", err)
		return
	}
	n.adv = adv
	n.closers = append(n.closers, closerFunc(adv.StopController))
	log.Printf("Advertising controller %s", discovery.ServiceTypeController)
}

func (n *node) findController(ctx context.Context) {
	bcfg := discovery.DefaultBrowserConfig()
	bcfg.Interface = n.cfg.MDNS.Interface
	browser, err := discovery.NewMDNSBrowser(bcfg)
	if err != nil {
		n.logger.Error("mDNS browser", "error", err)
		return
	}
	defer browser.Stop()

	svc, err := browser.FindController(ctx, n.cfg.GroupID)
	if err != nil {
		n.logger.Warn("no controller found", "group", n.cfg.GroupID, "error", err)
		return
	}
	n.link.SetControllerALMAC(svc.ALMAC)
	for _, addr := range svc.Addresses {
		peer := net.JoinHostPort(addr, strconv.Itoa(int(svc.Port)))
		if err := n.link.AddPeer(peer); err != nil {
			n.logger.Warn("controller address unusable", "addr", peer, "error", err)
		}
	}
	log.Printf("Found controller %s (%s)", svc.InstanceName, svc.ALMAC)
}

func (n *node) handleEvent(ev easyconnect.Event) {
	switch ev.Type {
	case easyconnect.EventPhaseChanged:
		log.Printf("[EVENT] %s: %s -> %s", shortID(ev.PeerID), ev.OldPhase, ev.NewPhase)
	case easyconnect.EventOnboarded:
		log.Printf("[EVENT] Onboarded %s (%s)", shortID(ev.PeerID), ev.MAC)
		n.onboarded()
	case easyconnect.EventRoleChanged:
		log.Printf("[EVENT] Role is now %s", ev.Role)
	case easyconnect.EventCCEChanged:
		log.Printf("[EVENT] CCE advertisement %s", onOff(ev.CCE))
	case easyconnect.EventIntroduced:
		log.Printf("[EVENT] Network introduction with %s complete", shortID(ev.PeerID))
	}
}

// onboarded runs after a session reaches the configured phase.
func (n *node) onboarded() {
	switch n.mgr.Role() {
	case easyconnect.RoleController:
		if n.adv != nil {
			if err := n.adv.UpdateController(n.controllerInfo()); err != nil {
				n.logger.Warn("mDNS update failed", "error", err)
			}
		}
	case easyconnect.RoleEnrollee:
		mac, _, _ := n.cfg.Addresses()
		n.link.SetBackhaul(easyconnect.BackhaulInfo{Associated: true, StationMAC: mac})
		if upgrade && !n.mgr.UpgradeToOnboardedProxyAgent() {
			n.logger.Warn("proxy agent upgrade failed")
		}
	}
}

// protocolLogger captures to the configured file and, at debug level,
// mirrors each event to the console.
func (n *node) protocolLogger(level slog.Level) (eclog.Logger, error) {
	var loggers []eclog.Logger
	if path := n.cfg.ProtocolLog; path != "" {
		fl, err := eclog.NewFileLogger(path)
		if err != nil {
			return nil, fmt.Errorf("protocol log: %w", err)
		}
		n.closers = append(n.closers, closerFunc(func() error {
			log.Printf("Protocol log: %d events written to %s", fl.Count(), path)
			return fl.Close()
		}))
		loggers = append(loggers, fl)
		log.Printf("Protocol log: %s", path)
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, eclog.NewSlogAdapter(n.logger))
	}
	if len(loggers) == 0 {
		return nil, nil
	}
	return eclog.NewMultiLogger(loggers...), nil
}

func (n *node) close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i].Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
	n.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
