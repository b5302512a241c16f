// Copyright (c) 2025 AltaFiscal
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goafip implements the authentication and idempotent-authorization
core shared by clients of AFIP's electronic invoicing web services
(WSFEv1, WSMTXCA, WSLSP and related fiscal services).

# Overview

Every AFIP fiscal web service requires a short-lived access ticket issued
by the WSAA authentication service. Obtaining one means signing a ticket
request (TRA) with the taxpayer's X.509 certificate as a CMS/PKCS#7 blob,
submitting it to WSAA, and caching the resulting {token, sign} pair so
subsequent calls reuse it until it expires.

Authorizing a fiscal document (obtaining a CAE) must happen exactly once
per document number. When the service reports that a number was already
processed, the client consults the document previously registered under
that number, compares it field by field against the local one, and only
then adopts the remote authorization code. A mismatch is surfaced as an
error rather than silently accepting a code that may belong to a
different document.

# Package Structure

The library is organized into the following packages:

	github.com/altafiscal/go-afip/pkg/credential - X.509 certificate and key loading
	github.com/altafiscal/go-afip/pkg/wsaa       - WSAA tickets: signing, caching, authentication
	github.com/altafiscal/go-afip/pkg/soap       - SOAP 1.1 transport and fault handling
	github.com/altafiscal/go-afip/pkg/fiscal     - fiscal document model and comparison
	github.com/altafiscal/go-afip/pkg/authorize  - authorization flow and reprocessing
	github.com/altafiscal/go-afip/pkg/wsfe       - WSFEv1 service binding

# Quick Start

To authenticate and authorize a document:

	import (
	    "github.com/altafiscal/go-afip/pkg/authorize"
	    "github.com/altafiscal/go-afip/pkg/credential"
	    "github.com/altafiscal/go-afip/pkg/wsaa"
	    "github.com/altafiscal/go-afip/pkg/wsfe"
	)

	cred, _ := credential.Load("cert.pem", "key.pem", "")

	client, _ := wsaa.NewClient(&wsaa.ClientConfig{
	    Credential: cred,
	    Endpoint:   "https://wsaahomo.afip.gov.ar/ws/services/LoginCms",
	    CacheDir:   "/var/cache/afip",
	})
	ticket, _ := client.Authenticate(ctx, "wsfe")

	binding, _ := wsfe.NewBinding(&wsfe.Config{Endpoint: wsfeURL, CUIT: 20111111112})
	auth := authorize.NewDocumentAuthorizer(binding, nil)
	result, err := auth.Authorize(ctx, doc, ticket)

# Safety Properties

  - A cached ticket within its TTL is reused without any network call.
  - The ticket cache is replaced atomically; concurrent refreshes never
    expose a half-written file.
  - A duplicate-submission response never produces a second authorization
    code: the previously issued code is adopted only after an exact,
    decimal-normalized comparison of every economically significant field.

# License

BSD-2-Clause License
*/
package goafip
