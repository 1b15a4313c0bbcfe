// Command v4vctl drives a v4v.Hub from the command line, using the
// package's default in-process collaborators (ArenaMemory,
// FutexEventChannel, SimpleDomainTable) in place of a real hypervisor.
// It exists to exercise register/send/notify/rules/dump end to end
// without a guest kernel, the way debug-capacity exercises a shm ring.
package main

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"go.v4v.dev/v4v/internal/v4v"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	hub, state := newDemoHub()

	var err error
	switch os.Args[1] {
	case "register":
		err = cmdRegister(hub, state, os.Args[2:])
	case "send":
		err = cmdSend(hub, state, os.Args[2:])
	case "notify":
		err = cmdNotify(hub, os.Args[2:])
	case "rules":
		err = cmdRules(hub, os.Args[2:])
	case "dump":
		err = cmdDump(hub, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "v4vctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: v4vctl <register|send|notify|rules|dump> [flags]`)
}

// demoState tracks domains the demo hub has already initialized and the
// rings registered on them, keyed by "domain:port:partner". Each process
// runs a single subcommand against a fresh hub, so this state does not
// carry over from one invocation to the next.
type demoState struct {
	arena   *v4v.ArenaMemory
	table   *v4v.SimpleDomainTable
	rings   map[string]*v4v.RingInfo
	inited  map[uint16]bool
}

func newDemoHub() (*v4v.Hub, *demoState) {
	arena := v4v.NewArenaMemory()
	ec := v4v.NewFutexEventChannel()
	table := v4v.NewSimpleDomainTable()
	hub := v4v.NewHub(arena, arena, ec, table)
	return hub, &demoState{arena: arena, table: table, rings: make(map[string]*v4v.RingInfo), inited: make(map[uint16]bool)}
}

func (s *demoState) ensureDomain(hub *v4v.Hub, domain uint16) error {
	if s.inited[domain] {
		return nil
	}
	s.table.MarkPresent(domain)
	if _, err := hub.InitDomain(domain); err != nil {
		return err
	}
	s.inited[domain] = true
	return nil
}

func ringKey(id v4v.RingID) string {
	return fmt.Sprintf("%d:%d:%d", id.Addr.Domain, id.Addr.Port, id.Partner)
}

func cmdRegister(hub *v4v.Hub, state *demoState, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	domain := fs.Uint16("domain", 0, "owning domain id")
	port := fs.Uint32("port", 0, "local port")
	partner := fs.Uint16("partner", v4v.DomainAny, "accepted partner domain (default: any)")
	length := fs.Uint32("len", 4096, "ring payload capacity in bytes, multiple of 16")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := state.ensureDomain(hub, *domain); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	id := v4v.RingID{Addr: v4v.Address{Domain: *domain, Port: *port}, Partner: *partner}
	pfns, err := v4v.PrepareRingPages(state.arena, id, *length)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	ring, err := hub.RegisterRing(*domain, pfns)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	state.rings[ringKey(id)] = ring
	fmt.Printf("registered ring %s (%d bytes, %d page(s))\n", ring.ID, ring.Len, ring.Npage)
	return nil
}

func cmdSend(hub *v4v.Hub, state *demoState, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	srcDomain := fs.Uint16("src-domain", 0, "sending domain id")
	srcPort := fs.Uint32("src-port", 0, "sending port")
	dstDomain := fs.Uint16("dst-domain", 0, "destination domain id")
	dstPort := fs.Uint32("dst-port", 0, "destination port")
	msgType := fs.Uint32("type", 0, "message_type")
	text := fs.String("data", "", "payload text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := state.ensureDomain(hub, *srcDomain); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	src := v4v.Address{Domain: *srcDomain, Port: *srcPort}
	dst := v4v.Address{Domain: *dstDomain, Port: *dstPort}
	n, err := hub.Send(src, dst, *msgType, []v4v.Iovec{{Data: []byte(*text)}})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("sent %d bytes %s -> %s\n", n, src, dst)
	return nil
}

func cmdNotify(hub *v4v.Hub, args []string) error {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	domain := fs.Uint16("domain", 0, "domain id to notify")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := hub.Notify(*domain); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	fmt.Printf("notified domain %d\n", *domain)
	return nil
}

func cmdRules(hub *v4v.Hub, args []string) error {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	add := fs.Bool("add", false, "add a rule instead of listing")
	accept := fs.Bool("accept", true, "accept (true) or reject (false); only with -add")
	srcDomain := fs.Uint16("src-domain", v4v.DomainAny, "")
	srcPort := fs.Uint32("src-port", v4v.PortAny, "")
	dstDomain := fs.Uint16("dst-domain", v4v.DomainAny, "")
	dstPort := fs.Uint32("dst-port", v4v.PortAny, "")
	position := fs.Int("position", 0, "1-based insert position; 0 appends")
	flush := fs.Bool("flush", false, "remove every rule")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rules := hub.Rules()
	if *flush {
		rules.Flush()
		fmt.Println("rule table flushed")
		return nil
	}
	if *add {
		rule := v4v.Rule{
			Accept: *accept,
			Src:    v4v.Address{Domain: *srcDomain, Port: *srcPort},
			Dst:    v4v.Address{Domain: *dstDomain, Port: *dstPort},
		}
		if err := rules.Add(rule, *position); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
		fmt.Println("rule added")
		return nil
	}

	for i, r := range rules.List(0, 1<<16) {
		verb := "accept"
		if !r.Accept {
			verb = "reject"
		}
		fmt.Printf("%3d: %-6s src=%s dst=%s\n", i+1, verb, r.Src, r.Dst)
	}
	return nil
}

func cmdDump(hub *v4v.Hub, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	domain := fs.Uint16("domain", 0, "domain id to dump")
	if err := fs.Parse(args); err != nil {
		return err
	}

	info, err := hub.Info(*domain)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	fmt.Printf("domain %d: ring_magic=%#x data_magic=%#x event_port=%d\n", *domain, info.RingMagic, info.DataMagic, info.EventPort)

	snaps, err := hub.Snapshot(*domain)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	var lines []string
	for _, s := range snaps {
		lines = append(lines, fmt.Sprintf("  %s len=%d npage=%d tx=%d rx=%d pending=%d", s.ID, s.Len, s.Npage, s.TxPtr, s.RxPtr, s.Pending))
	}
	fmt.Println(strings.Join(lines, "\n"))
	return nil
}
