package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/ruteri/opcua-server-keystore/cmd/flags"
	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/hostnames"
	"github.com/ruteri/opcua-server-keystore/httpserver"
	"github.com/ruteri/opcua-server-keystore/identity"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/ruteri/opcua-server-keystore/storage"
	"github.com/urfave/cli/v2"
)

var ServiceLogFlag = flags.LogServiceFlagFn("serverkeystore")

var KeystoreFlag = &cli.StringFlag{
	Name:    "keystore",
	Value:   "./security/server.oks",
	EnvVars: []string{"KEYSTORE_LOCATION"},
	Usage:   "keystore location: a path or a file://, s3://, vault:// or ipfs:// URI",
}
var KeystorePasswordFlag = &cli.StringFlag{
	Name:     "keystore-password",
	EnvVars:  []string{"KEYSTORE_PASSWORD"},
	Required: true,
	Usage:    "password protecting the keystore",
}
var MirrorFlag = &cli.StringSliceFlag{
	Name:  "mirror",
	Usage: "additional keystore location to keep a copy in (repeatable)",
}
var KeyLengthFlag = &cli.IntFlag{
	Name:  "key-length",
	Value: interfaces.DefaultKeyLength,
	Usage: "RSA key length in bits for a newly generated identity",
}
var ApplicationUUIDFlag = &cli.StringFlag{
	Name:  "application-uuid",
	Usage: "UUID embedded in the application URI of a newly generated identity; random if empty",
}
var HostnameFlag = &cli.StringSliceFlag{
	Name:  "hostname",
	Usage: "hostname or IPv4 address to put into the certificate (repeatable); discovered from the host if absent",
}
var BindAddressFlag = &cli.StringFlag{
	Name:  "bind-address",
	Value: "0.0.0.0",
	Usage: "address the OPC UA server binds to; limits hostname discovery to it unless it is a wildcard",
}
var ResolveHostnamesFlag = &cli.BoolFlag{
	Name:  "resolve-hostnames",
	Usage: "add reverse DNS names of discovered addresses",
}
var DNSServerFlag = &cli.StringFlag{
	Name:  "dns-server",
	Value: hostnames.DefaultDNSServer,
	Usage: "DNS server used for reverse lookups",
}
var ExportCertificateFlag = &cli.StringFlag{
	Name:  "export-certificate",
	Usage: "write the PEM certificate chain to this file",
}
var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Usage: "serve the public certificate on this address; exit after opening the keystore if empty",
}

func main() {
	app := &cli.App{
		Name:  "serverkeystore",
		Usage: "Create or load the OPC UA server application instance identity",
		Flags: append([]cli.Flag{
			KeystoreFlag, KeystorePasswordFlag, MirrorFlag, KeyLengthFlag, ApplicationUUIDFlag,
			HostnameFlag, BindAddressFlag, ResolveHostnamesFlag, DNSServerFlag,
			ExportCertificateFlag, ListenAddrFlag, ServiceLogFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx := cCtx.Context

			storePassword := []byte(cCtx.String(KeystorePasswordFlag.Name))
			defer memguard.WipeBytes(storePassword)

			settings := interfaces.Settings{
				StorageLocation:  cCtx.String(KeystoreFlag.Name),
				StorePassword:    storePassword,
				DefaultKeyLength: cCtx.Int(KeyLengthFlag.Name),
			}

			opts := []identity.Option{identity.WithLogger(logger)}

			if raw := cCtx.String(ApplicationUUIDFlag.Name); raw != "" {
				appUUID, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid application UUID: %w", err)
				}
				opts = append(opts, identity.WithApplicationUUID(appUUID))
			}

			if mirrors := cCtx.StringSlice(MirrorFlag.Name); len(mirrors) > 0 {
				locations := append([]string{settings.StorageLocation}, mirrors...)
				backend, err := storage.NewFactory(logger).CreateMirrored(locations)
				if err != nil {
					logger.Error("Failed to create keystore backends", "err", err)
					return err
				}
				opts = append(opts, identity.WithBackend(backend))
			}

			var source identity.HostnameSource
			if names := cCtx.StringSlice(HostnameFlag.Name); len(names) > 0 {
				source = identity.StaticHostnames(names...)
			} else {
				source = hostnames.Source(ctx, hostnames.Options{
					BindAddress:      cCtx.String(BindAddressFlag.Name),
					ResolveAddresses: cCtx.Bool(ResolveHostnamesFlag.Name),
					DNSServer:        cCtx.String(DNSServerFlag.Name),
					Log:              logger,
				})
			}

			ks, err := identity.NewServerKeyStore(ctx, settings, source, opts...)
			switch {
			case errors.Is(err, interfaces.ErrPersistence):
				logger.Warn("Continuing with an identity that will not survive a restart", "err", err)
			case err != nil:
				logger.Error("Failed to open keystore", "err", err)
				return err
			}

			chain, found := ks.DefaultCertificateChain()
			if !found {
				return fmt.Errorf("keystore at %s has no %q entry", ks.LocationURI(), ks.DefaultAlias())
			}

			if path := cCtx.String(ExportCertificateFlag.Name); path != "" {
				if err := os.WriteFile(path, cryptoutils.EncodeCertificateChain(chain), 0644); err != nil {
					return fmt.Errorf("failed to export certificate: %w", err)
				}
				logger.Info("Exported certificate", "path", path)
			}

			summary := httpserver.Summarize(ks.DefaultAlias(), chain)
			if summary.Expired {
				logger.Warn("Server certificate has expired, clients will reject it",
					"notAfter", summary.NotAfter,
					"location", ks.LocationURI())
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}

			listenAddr := cCtx.String(ListenAddrFlag.Name)
			if listenAddr == "" {
				return nil
			}

			srv, err := httpserver.New(flags.ConfigureServer(cCtx, logger, listenAddr), httpserver.NewHandler(ks, logger))
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			srv.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Serving certificate, press Ctrl+C to stop")
			select {
			case <-exit:
				logger.Info("Shutdown signal received")
			case <-ctx.Done():
			}

			srv.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
