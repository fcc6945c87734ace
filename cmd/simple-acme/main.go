// simple-acme provides a command-line maintenance shell for the ACME
// issuance engine: account registration, contact updates, at-rest
// encryption migration and order cache management.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/clients"
	"github.com/simple-acme/simple-acme-sub001/acme/orders"
	"github.com/simple-acme/simple-acme-sub001/cmd"
	"github.com/simple-acme/simple-acme-sub001/config"
	acmenet "github.com/simple-acme/simple-acme-sub001/net"
	"github.com/simple-acme/simple-acme-sub001/shell"
)

func main() {
	baseURI := flag.String(
		"baseuri",
		"",
		"Base URI of the ACME service (overrides ACME_BASE_URI)")

	configPath := flag.String(
		"config",
		"",
		"Configuration root for accounts and the order cache (overrides ACME_CONFIG_PATH)")

	contact := flag.String(
		"contact",
		"",
		"Contact email address for account registration (overrides ACME_CONTACT_EMAIL)")

	acceptTOS := flag.Bool(
		"accept-tos",
		false,
		"Accept the server's terms of service without prompting")

	verbose := flag.Bool(
		"verbose",
		false,
		"Enable debug logging")

	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	settings, err := config.Load()
	cmd.FailOnError(err, "Unable to load settings")

	if *baseURI != "" {
		settings.BaseURI = *baseURI
	}
	if *configPath != "" {
		settings.ConfigPath = *configPath
	}
	if *contact != "" {
		settings.ContactEmail = *contact
	}
	if *acceptTOS {
		settings.AcceptTermsOfService = true
	}

	net, err := acmenet.New(acmenet.Config{
		CABundlePath: settings.CABundle,
		ProxyURL:     settings.Proxy,
	})
	cmd.FailOnError(err, "Unable to create ACME transport")

	accountStore, err := accounts.NewManager(settings.ConfigPath, settings.EncryptConfig, log)
	cmd.FailOnError(err, "Unable to create account store")

	orderManager := orders.NewManager(
		settings.OrdersPath(), settings.ReuseWindow(), settings.ValidityDays, log)

	var prompt clients.Prompter = shell.StdinPrompter{}
	if settings.AcceptTermsOfService {
		prompt = clients.AutoConfirm{}
	}

	clientManager, err := clients.NewManager(settings, accountStore, net, prompt, log)
	cmd.FailOnError(err, "Unable to create client manager")

	sh := shell.New(&shell.Options{
		Clients:  clientManager,
		Accounts: accountStore,
		Orders:   orderManager,
	})
	sh.Run()
}
