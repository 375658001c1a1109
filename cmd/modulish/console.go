package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dsaub/modulish-bot/internal/host"
	"github.com/dsaub/modulish-bot/internal/plugin"
)

// console is the interactive management surface. Each line becomes one
// lifecycle or install call; every call yields exactly one status line.
type console struct {
	manager *plugin.Manager
	hub     *host.Hub

	okStyle    lipgloss.Style
	failStyle  lipgloss.Style
	titleStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

func newConsole(manager *plugin.Manager, hub *host.Hub) *console {
	return &console{
		manager:    manager,
		hub:        hub,
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (c *console) printBanner(name string, loaded int) {
	fmt.Println(c.titleStyle.Render(fmt.Sprintf("%s ready", name)))
	fmt.Println(c.dimStyle.Render(fmt.Sprintf("%d plugins loaded; type 'help' for commands", loaded)))
}

func (c *console) ok(format string, args ...any) {
	fmt.Println(c.okStyle.Render("✔ " + fmt.Sprintf(format, args...)))
}

func (c *console) fail(format string, args ...any) {
	fmt.Println(c.failStyle.Render("✖ " + fmt.Sprintf(format, args...)))
}

// run reads commands from stdin until quit or EOF.
func (c *console) run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if quit := c.handle(ctx, fields[0], fields[1:]); quit {
				return nil
			}
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// handle executes one console command. Returns true on quit.
func (c *console) handle(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "quit", "exit":
		return true

	case "help":
		c.printHelp()

	case "plugins":
		names := c.manager.Suggestions("", 0)
		if len(names) == 0 {
			fmt.Println(c.dimStyle.Render("no plugins found"))
			break
		}
		loaded := make(map[string]bool)
		for _, n := range c.manager.Registry().Names() {
			loaded[n] = true
		}
		for _, n := range names {
			mark := "·"
			if loaded[n] {
				mark = "●"
			}
			fmt.Printf("  %s %s\n", mark, n)
		}

	case "load", "start":
		if len(args) != 1 {
			c.fail("usage: load <name>")
			break
		}
		if err := c.manager.Load(ctx, args[0]); err != nil {
			c.fail("could not load %q: %v", args[0], err)
		} else {
			c.ok("plugin %q loaded", args[0])
		}

	case "stop", "unload":
		if len(args) != 1 {
			c.fail("usage: stop <name>")
			break
		}
		if err := c.manager.Unload(ctx, args[0]); err != nil {
			c.fail("could not stop %q: %v", args[0], err)
		} else {
			c.ok("plugin %q stopped", args[0])
		}

	case "restart":
		if len(args) != 1 {
			c.fail("usage: restart <name>")
			break
		}
		if err := c.manager.Restart(ctx, args[0]); err != nil {
			c.fail("could not restart %q: %v", args[0], err)
		} else {
			c.ok("plugin %q restarted", args[0])
		}

	case "download":
		if len(args) < 1 {
			c.fail("usage: download <owner/repo[@branch]> [--no-load]")
			break
		}
		autoload := true
		if len(args) > 1 && args[1] == "--no-load" {
			autoload = false
		}
		name, err := c.manager.Install(ctx, args[0], autoload)
		switch {
		case err != nil && name != "":
			c.fail("plugin %q downloaded but not loaded: %v", name, err)
		case err != nil:
			c.fail("download failed: %v", err)
		case autoload:
			c.ok("plugin %q downloaded and loaded", name)
		default:
			c.ok("plugin %q downloaded (not loaded)", name)
		}

	case "call":
		if len(args) < 1 {
			c.fail("usage: call <command> [args...]")
			break
		}
		out, err := c.hub.Dispatch(args[0], args[1:])
		if err != nil {
			c.fail("%v", err)
		} else if out != "" {
			fmt.Println(out)
		}

	default:
		c.fail("unknown command %q; type 'help'", cmd)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Println(c.dimStyle.Render(strings.TrimSpace(`
plugins                          list plugins (● loaded, · on disk)
load <name>                      load a plugin
stop <name>                      unload a plugin
restart <name>                   restart a plugin
download <owner/repo[@branch]>   install a plugin from a remote archive
call <command> [args...]         invoke a plugin-registered command
quit                             exit
`)))
}
