// Package shell provides a small interactive maintenance shell for the
// issuance engine: account inspection and registration, contact updates,
// at-rest encryption migration and order cache management.
package shell

import (
	"bufio"
	"os"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/clients"
	"github.com/simple-acme/simple-acme-sub001/acme/orders"
)

const basePrompt = "[ simple-acme ] > "

// StdinPrompter asks yes/no questions on the terminal. It satisfies the
// clients.Prompter interface for interactive terms-of-service acceptance.
type StdinPrompter struct{}

// Confirm prints the question and reads a y/n answer from stdin. Anything
// but an explicit yes counts as refusal.
func (StdinPrompter) Confirm(message string) bool {
	os.Stdout.WriteString(message + " [y/n] ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Options carries the collaborators the shell commands operate on.
type Options struct {
	Clients  *clients.Manager
	Accounts *accounts.Manager
	Orders   *orders.Manager
}

// MaintenanceShell is an ishell.Shell with the engine's maintenance commands
// registered.
type MaintenanceShell struct {
	*ishell.Shell
	opts *Options
}

// New builds a MaintenanceShell from the given Options.
func New(opts *Options) *MaintenanceShell {
	sh := &MaintenanceShell{
		Shell: ishell.New(),
		opts:  opts,
	}
	sh.SetPrompt(basePrompt)

	sh.AddCmd(&ishell.Cmd{
		Name: "accounts",
		Help: "list stored accounts",
		Func: sh.accountsCmd,
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "register",
		Help: "register [name] - load or register the named account",
		Func: sh.registerCmd,
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "contacts",
		Help: "contacts [name] - update the named account's contact addresses",
		Func: sh.contactsCmd,
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "encrypt",
		Help: "re-save all account signers under the configured protection mode",
		Func: sh.encryptCmd,
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "clear-cache",
		Help: "wipe the order cache",
		Func: sh.clearCacheCmd,
	})

	return sh
}

// Run starts the interactive session and blocks until the user exits.
func (sh *MaintenanceShell) Run() {
	sh.Println("simple-acme maintenance shell")
	sh.Shell.Run()
	sh.Println("Goodbye!")
}

// optionalName reads the first command argument as an account name, with the
// default (unnamed) account when absent.
func optionalName(c *ishell.Context) string {
	if len(c.Args) > 0 {
		return c.Args[0]
	}
	return ""
}

func displayName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

func (sh *MaintenanceShell) accountsCmd(c *ishell.Context) {
	names, err := sh.opts.Accounts.ListAccounts()
	if err != nil {
		c.Printf("accounts: %v\n", err)
		return
	}
	if len(names) == 0 {
		c.Println("no stored accounts")
		return
	}
	for _, name := range names {
		c.Println(displayName(name))
	}
}

func (sh *MaintenanceShell) registerCmd(c *ishell.Context) {
	name := optionalName(c)
	ac, err := sh.opts.Clients.GetClient(name)
	if err != nil {
		c.Printf("register: %v\n", err)
		return
	}
	c.Printf("account %s ready: %s\n", displayName(name), ac.ActiveAccountID())
}

func (sh *MaintenanceShell) contactsCmd(c *ishell.Context) {
	name := optionalName(c)
	if err := sh.opts.Clients.ChangeContacts(name); err != nil {
		c.Printf("contacts: %v\n", err)
		return
	}
	c.Printf("account %s contacts updated\n", displayName(name))
}

func (sh *MaintenanceShell) encryptCmd(c *ishell.Context) {
	if err := sh.opts.Accounts.Encrypt(); err != nil {
		c.Printf("encrypt: %v\n", err)
		return
	}
	c.Println("all account signers re-saved")
}

func (sh *MaintenanceShell) clearCacheCmd(c *ishell.Context) {
	if err := sh.opts.Orders.ClearCache(); err != nil {
		c.Printf("clear-cache: %v\n", err)
		return
	}
	c.Println("order cache cleared")
}
