// Package interactive provides the interactive command-line interface
// for ec-node.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/registry"
	"github.com/meshonboard/ec-go/pkg/simlink"
)

// Shell handles interactive mode for ec-node.
type Shell struct {
	rl  *readline.Instance
	out io.Writer

	mgr   *easyconnect.Manager
	link  *simlink.Link
	store *registry.Store
	own   *bootstrap.Data
}

type command struct {
	aliases []string
	run     func(s *Shell, args []string)
}

var commands = []command{
	{[]string{"help", "?"}, (*Shell).printHelp},
	{[]string{"status", "s"}, (*Shell).cmdStatus},
	{[]string{"sessions", "ls"}, (*Shell).cmdSessions},
	{[]string{"uri"}, (*Shell).cmdURI},
	{[]string{"add"}, (*Shell).cmdAdd},
	{[]string{"onboard"}, (*Shell).cmdOnboard},
	{[]string{"forget"}, (*Shell).cmdForget},
	{[]string{"peers"}, (*Shell).cmdPeers},
	{[]string{"cce"}, (*Shell).cmdCCE},
	{[]string{"upgrade"}, (*Shell).cmdUpgrade},
	{[]string{"reconfigure", "reconf"}, (*Shell).cmdReconfigure},
	{[]string{"introduce"}, (*Shell).cmdIntroduce},
}

// New creates the shell. Call Attach before Run.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ec> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, out: rl.Stdout()}, nil
}

// Stderr returns a writer that coordinates with the readline prompt.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Attach wires the node's components. store and own may be nil.
func (s *Shell) Attach(mgr *easyconnect.Manager, link *simlink.Link, store *registry.Store, own *bootstrap.Data) {
	s.mgr = mgr
	s.link = link
	s.store = store
	s.own = own
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp(nil)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name := strings.ToLower(parts[0])
		if name == "quit" || name == "exit" || name == "q" {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if !s.dispatch(name, parts[1:]) {
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", name)
		}
	}
}

func (s *Shell) dispatch(name string, args []string) bool {
	for _, c := range commands {
		for _, a := range c.aliases {
			if a == name {
				c.run(s, args)
				return true
			}
		}
	}
	return false
}

func (s *Shell) printHelp(_ []string) {
	fmt.Fprintln(s.out, `
Easy Connect Node Commands:
  Status:
    status             - Show role, enrollee phase and CCE state
    sessions           - List configurator sessions
    peers              - List onboarded peers from the registry
    uri                - Show this node's DPP URI (enrollee)

  Configurator:
    add <uri>          - Register a peer's DPP URI
    onboard <uri>      - Start onboarding a peer immediately
    forget <peer-id>   - Evict a peer so it can onboard again
    introduce          - Start network introduction with configured peers

  Proxy agent:
    cce on|off         - Toggle the CCE information element

  Enrollee:
    reconfigure        - Request a new configuration
    upgrade            - Become a proxy agent

  quit                 - Exit`)
}

func (s *Shell) cmdStatus(_ []string) {
	fmt.Fprintf(s.out, "Role:    %s\n", s.mgr.Role())
	if kind, ok := s.mgr.ConfiguratorKind(); ok {
		fmt.Fprintf(s.out, "Kind:    %s\n", kind)
	}
	if s.mgr.Role() == easyconnect.RoleEnrollee || s.own != nil {
		fmt.Fprintf(s.out, "Phase:   %s\n", s.mgr.EnrolleePhase())
	}
	fmt.Fprintf(s.out, "CCE:     %v\n", s.mgr.CCEAdvertised())
	mesh := s.link.MeshInfo()
	fmt.Fprintf(s.out, "AL MAC:  %s\n", mesh.ALMAC)
	fmt.Fprintf(s.out, "Ctrl AL: %s\n", mesh.ControllerALMAC)
	if cfg := s.mgr.EnrolleeConfig(); cfg != nil {
		fmt.Fprintf(s.out, "Network: %s (%s)\n", cfg.Discovery.SSID, cfg.Cred.AKM)
	}
	if seen := s.link.CCEAdvertisers(); len(seen) > 0 {
		fmt.Fprintf(s.out, "CCE seen from %d radio(s)\n", len(seen))
	}
}

func (s *Shell) cmdSessions(_ []string) {
	sessions := s.mgr.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(s.out, "No sessions")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tMAC\tPHASE\tPATH\tDEADLINE")
	for _, si := range sessions {
		mac := "-"
		if si.HasMAC {
			mac = si.MAC.String()
		}
		path := "relayed"
		if si.Direct {
			path = "direct"
		}
		deadline := "-"
		if !si.Deadline.IsZero() {
			deadline = time.Until(si.Deadline).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", short(si.PeerID), mac, si.Phase, path, deadline)
	}
	_ = tw.Flush()
}

func (s *Shell) cmdURI(_ []string) {
	if s.own == nil {
		fmt.Fprintln(s.out, "No local bootstrapping key")
		return
	}
	fmt.Fprintln(s.out, s.own.URI())
}

func (s *Shell) parseURI(args []string) *bootstrap.Data {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: <command> <DPP:...>")
		return nil
	}
	b, err := bootstrap.ParseURI(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid URI: %v\n", err)
		return nil
	}
	return b
}

func (s *Shell) cmdAdd(args []string) {
	b := s.parseURI(args)
	if b == nil {
		return
	}
	if err := s.mgr.AddBootstrap(b); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if s.store != nil {
		if err := s.store.AddBootstrap(context.Background(), b); err != nil {
			fmt.Fprintf(s.out, "Registered, but not persisted: %v\n", err)
			return
		}
	}
	fmt.Fprintf(s.out, "Registered %s\n", short(b.PeerID()))
}

func (s *Shell) cmdOnboard(args []string) {
	b := s.parseURI(args)
	if b == nil {
		return
	}
	report(s.out, "Onboarding "+short(b.PeerID()), s.mgr.StartConfiguratorOnboarding(b))
}

func (s *Shell) cmdForget(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: forget <peer-id>")
		return
	}
	peer := s.expand(args[0])
	report(s.out, "Forget "+short(peer), s.mgr.ForgetPeer(peer))
	if s.store != nil {
		if err := s.store.Forget(context.Background(), peer); err != nil && !errors.Is(err, registry.ErrNotFound) {
			fmt.Fprintf(s.out, "Registry: %v\n", err)
		}
	}
}

// expand resolves a shortened peer ID against the session table.
func (s *Shell) expand(prefix string) string {
	for _, si := range s.mgr.Sessions() {
		if strings.HasPrefix(si.PeerID, prefix) {
			return si.PeerID
		}
	}
	return prefix
}

func (s *Shell) cmdPeers(_ []string) {
	if s.store == nil {
		fmt.Fprintln(s.out, "No registry configured")
		return
	}
	peers, err := s.store.Peers(context.Background())
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(peers) == 0 {
		fmt.Fprintln(s.out, "No onboarded peers")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tMAC\tSSID\tONBOARDED\tCOUNT")
	for _, p := range peers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			short(p.PeerID), p.MAC, p.SSID, p.OnboardedAt.Local().Format(time.DateTime), p.OnboardCount)
	}
	_ = tw.Flush()
}

func (s *Shell) cmdCCE(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(s.out, "Usage: cce on|off")
		return
	}
	report(s.out, "CCE "+args[0], s.mgr.ToggleCCE(args[0] == "on"))
}

func (s *Shell) cmdUpgrade(_ []string) {
	report(s.out, "Upgrade to proxy agent", s.mgr.UpgradeToOnboardedProxyAgent())
}

func (s *Shell) cmdReconfigure(_ []string) {
	if s.own == nil {
		fmt.Fprintln(s.out, "No local bootstrapping key")
		return
	}
	report(s.out, "Reconfiguration", s.mgr.StartEnrolleeOnboarding(true, s.own))
}

func (s *Shell) cmdIntroduce(_ []string) {
	report(s.out, "Network introduction", s.mgr.StartNetworkIntroduction())
}

func report(w io.Writer, what string, ok bool) {
	if ok {
		fmt.Fprintf(w, "%s: started\n", what)
		return
	}
	fmt.Fprintf(w, "%s: refused\n", what)
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
