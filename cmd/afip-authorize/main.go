// Command afip-authorize authorizes one fiscal document.
//
// It loads a YAML configuration, obtains (or reuses) a WSAA ticket and
// submits the document described by a JSON file to the configured
// service.
//
// Exit codes:
//
//	0  document authorized (or recovered via reprocessing)
//	1  unexpected error
//	2  authentication failure
//	3  document rejected by the service
//	4  reprocess mismatch: the number is consumed by a different document
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/altafiscal/go-afip/internal/config"
	"github.com/altafiscal/go-afip/pkg/authorize"
	"github.com/altafiscal/go-afip/pkg/credential"
	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/soap"
	"github.com/altafiscal/go-afip/pkg/wsaa"
	"github.com/altafiscal/go-afip/pkg/wsfe"
)

const (
	exitOK = iota
	exitError
	exitAuthFailed
	exitRejected
	exitMismatch
)

var (
	configPath = flag.String("config", "afip.yaml", "Configuration file")
	docPath    = flag.String("document", "", "JSON file with the document to authorize")
	service    = flag.String("service", wsfe.ServiceName, "Service to use")
	verbose    = flag.Bool("verbose", false, "Debug logging")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *docPath == "" {
		logger.Error("missing -document flag")
		return exitError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return exitError
	}

	svcCfg, ok := cfg.Services[*service]
	if !ok {
		logger.Error("service not configured", "service", *service)
		return exitError
	}

	doc, err := readDocument(*docPath)
	if err != nil {
		logger.Error("reading document", "error", err)
		return exitError
	}

	cred, signer, err := buildCredential(cfg)
	if err != nil {
		logger.Error("loading credential", "error", err)
		return exitError
	}

	soapClient := soap.NewClient(&soap.Config{Timeout: cfg.Timeout, Logger: logger})

	authClient, err := wsaa.NewClient(&wsaa.ClientConfig{
		Credential: cred,
		Endpoint:   cfg.WSAA.Endpoint,
		CacheDir:   cfg.WSAA.CacheDir,
		TicketTTL:  cfg.WSAA.TicketTTL,
		Signer:     signer,
		SOAP:       soapClient,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("creating wsaa client", "error", err)
		return exitError
	}

	ctx := context.Background()

	ticket, err := authClient.Authenticate(ctx, *service)
	if err != nil {
		// Nothing can be authorized without a ticket.
		logger.Error("authentication failed", "error", err)
		return exitAuthFailed
	}

	binding, err := wsfe.NewBinding(&wsfe.Config{
		Endpoint:       svcCfg.Endpoint,
		CUIT:           svcCfg.CUIT,
		DuplicateCodes: svcCfg.DuplicateCodes,
		NotFoundCodes:  svcCfg.NotFoundCodes,
		SOAP:           soapClient,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("creating binding", "error", err)
		return exitError
	}

	authorizer := authorize.NewDocumentAuthorizer(binding, logger)

	result, err := authorizer.Authorize(ctx, doc, ticket)
	if err != nil {
		var reproc *authorize.ReprocessError
		if errors.As(err, &reproc) && !reproc.NotFound {
			// Potential duplicate-document bug upstream; make it loud.
			logger.Error("REPROCESS MISMATCH: sequence number consumed by a different document",
				"error", err)
			return exitMismatch
		}
		logger.Error("authorization failed", "error", err)
		return exitError
	}

	if result.Status == fiscal.StatusRejected {
		logger.Warn("document rejected", "errors", result.Errors, "observations", result.Observations)
		return exitRejected
	}

	fmt.Printf("%s %s (expires %s)\n", result.Status, result.Code, result.ExpirationDate)
	return exitOK
}

func readDocument(path string) (*fiscal.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc fiscal.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document JSON: %w", err)
	}
	return &doc, nil
}

func buildCredential(cfg *config.Config) (*credential.Credential, wsaa.Signer, error) {
	switch cfg.Signer.Mode {
	case "pkcs11":
		cred, err := credential.LoadPKCS11(&credential.PKCS11Config{
			ModulePath: cfg.Signer.PKCS11.ModulePath,
			TokenLabel: cfg.Signer.PKCS11.TokenLabel,
			PIN:        cfg.Signer.PKCS11.PIN,
			KeyLabel:   cfg.Signer.PKCS11.KeyLabel,
			CertPath:   cfg.Credential.CertFile,
		})
		if err != nil {
			return nil, nil, err
		}
		signer, err := wsaa.NewCMSSigner(cred)
		return cred, signer, err

	case "openssl":
		cred, err := credential.Load(cfg.Credential.CertFile, cfg.Credential.KeyFile, cfg.Credential.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		signer, err := wsaa.NewOpenSSLSigner(cred, cfg.Signer.OpenSSLPath, cfg.Credential.Passphrase)
		return cred, signer, err

	default:
		cred, err := credential.Load(cfg.Credential.CertFile, cfg.Credential.KeyFile, cfg.Credential.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		signer, err := wsaa.NewCMSSigner(cred)
		return cred, signer, err
	}
}
